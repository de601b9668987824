package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// Store calls triggered by a request get this long before they are abandoned.
const storeTimeout = 10 * time.Second

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
