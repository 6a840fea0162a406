package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestSwaggerDocListsRoutes(t *testing.T) {
	raw, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	require.NoError(t, err)

	var doc struct {
		Schemes []string                  `json:"schemes"`
		Paths   map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	assert.Equal(t, []string{"http"}, doc.Schemes)

	routes := map[string][]string{
		"/api/login":                     {"post"},
		"/api/register":                  {"post"},
		"/api/rooms":                     {"post"},
		"/api/rooms/mine":                {"get"},
		"/api/rooms/public":              {"get"},
		"/api/rooms/{id}":                {"get"},
		"/api/rooms/{id}/messages":       {"get", "post"},
		"/api/rooms/{id}/request-access": {"post"},
		"/api/messages/{id}":             {"delete"},
		"/api/messages/{id}/status":      {"patch"},
		"/api/requests/pending":          {"get"},
		"/api/requests/{id}/approve":     {"post"},
		"/api/requests/{id}/reject":      {"post"},
		"/ws":                            {"get"},
	}
	for path, methods := range routes {
		ops, ok := doc.Paths[path]
		if !assert.True(t, ok, "missing path %s", path) {
			continue
		}
		for _, m := range methods {
			assert.Contains(t, ops, m, "missing %s %s", m, path)
		}
	}
	assert.Len(t, doc.Paths, len(routes))
}
