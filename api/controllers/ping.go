package controllers

import (
	"net/http"

	"github.com/marianocruz/pos-inventory-backend/api/responses"
)

func Ping(w http.ResponseWriter, r *http.Request) {
	responses.WriteSuccess(w, map[string]string{"message": "pong"})
}
