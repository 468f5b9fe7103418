package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func RegisterDocs(r *gin.Engine) {
	r.GET("/docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/markdown; charset=utf-8")
		c.String(http.StatusOK, `# Management Board API

Mirrors Redmine issues into the local database and serves them from there.

## Routes

- GET /healthz
- GET /readyz
- GET /issues?limit=&offset=
- POST /sync-issues
- GET /sync-runs?limit=
- GET /check-api-keys?verify=
- POST /check-api-keys  {"redmine_api_key": "..."}
- GET /swagger/index.html

## Auth

When server.auth_token is set, POST routes require
"Authorization: Bearer <token>". Read routes stay open.

## Sync

POST /sync-issues fetches every page of /issues.json and upserts it in
batches. A second request while a run is active gets 409.
`)
	})
}
