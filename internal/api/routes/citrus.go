package routes

import (
	"net/http"

	"rbeam/internal/core/remote"
)

// Citrus serves this server's federation descriptor. Peers fetch it to
// learn which schemas we accept before sending anything.
func Citrus(citrusID string) http.HandlerFunc {
	descriptor := remote.Descriptor{
		ID:      citrusID,
		Schemas: []string{remote.SchemaProfile, remote.SchemaMail},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeOK(w, descriptor)
	}
}
