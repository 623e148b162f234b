package handlers

import (
	"fmt"
	"net/http"
)

// HomeHandler godoc
// @Summary Home page
// @Description Returns a welcome message naming the loaded dataset
// @Tags general
// @Produce text/plain
// @Success 200 {string} string "Welcome to the anchor topic server!"
// @Router / [get]
func HomeHandler(dataset string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		fmt.Fprintf(w, "Welcome to the anchor topic server! Dataset: %s\n", dataset)
	}
}
