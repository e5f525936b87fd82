package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the auth service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>campushub-auth - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "campushub-auth", "version": "v1.0.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer" } },
    "schemas": {
      "User": { "type": "object", "properties": { "user_id": {"type":"integer"}, "email": {"type":"string"}, "username": {"type":"string"}, "user_role": {"type":"string","enum":["student","moderator","admin"]}, "profile_picture": {"type":"string"}, "google_id": {"type":"string"} } },
      "AuthResult": { "type": "object", "properties": { "user": {"$ref":"#/components/schemas/User"}, "token": {"type":"string"} } },
      "Error": { "type": "object", "properties": { "success": {"type":"boolean"}, "error": {"type":"string"}, "details": {"type":"array","items":{"type":"object","properties":{"field":{"type":"string"},"message":{"type":"string"}}}} } }
    }
  },
  "paths": {
    "/api/auth/login": {
      "post": {
        "summary": "Login with email and password",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["email","password"],"properties":{"email":{"type":"string","format":"email"},"password":{"type":"string","minLength":6}}}}}},
        "responses": { "200": { "description": "user and token" }, "400": { "description": "validation error" }, "401": { "description": "invalid credentials or inactive user" } }
      }
    },
    "/api/auth/google": {
      "post": { "summary": "Login with a federated identity token", "security": [{"bearer": []}], "responses": { "200": { "description": "user and token" }, "401": { "description": "invalid federated token" }, "503": { "description": "identity provider unavailable" } } }
    },
    "/api/auth/google/store-session": {
      "post": { "summary": "Store a federated token under a session id", "security": [{"bearer": []}], "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["sessionId"],"properties":{"sessionId":{"type":"string","maxLength":256}}}}}}, "responses": { "200": { "description": "stored" }, "400": { "description": "missing session id" } } }
    },
    "/api/auth/google/poll-session": {
      "get": { "summary": "Poll a session; data is null until a token is stored", "parameters": [{"name":"sessionId","in":"query","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "user and token, or null" }, "401": { "description": "stored token rejected" } } }
    },
    "/api/auth/verify-firebase-token": {
      "post": { "summary": "Verify a federated token and login", "security": [{"bearer": []}], "responses": { "200": { "description": "user and token" }, "401": { "description": "verification failed" } } }
    },
    "/api/auth/profile": {
      "get": { "summary": "Current user profile", "security": [{"bearer": []}], "responses": { "200": { "description": "profile" }, "401": { "description": "missing or invalid token" }, "404": { "description": "user not found" } } }
    },
    "/api/auth/logout": {
      "post": { "summary": "Logout (stateless)", "security": [{"bearer": []}], "responses": { "200": { "description": "logged out" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
