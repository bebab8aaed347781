// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "e-Government Portal Backend",
    "description": "Complaint intake, ticket tracking and the portal assistant",
    "version": "1.0"
  },
  "basePath": "/",
  "tags": [
    {"name": "complaints"},
    {"name": "drafts"},
    {"name": "chat"},
    {"name": "articles"},
    {"name": "admin"}
  ],
  "paths": {
    "/api/complaints/analyze": {
      "post": {"tags": ["complaints"], "summary": "Classify complaint text", "produces": ["application/json"]}
    },
    "/api/complaints": {
      "post": {"tags": ["complaints"], "summary": "Submit complaint", "produces": ["application/json"]}
    },
    "/api/complaints/categories": {
      "get": {"tags": ["complaints"], "summary": "List complaint categories", "produces": ["application/json"]}
    },
    "/api/complaints/{id}": {
      "get": {"tags": ["complaints"], "summary": "Track complaint", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}]}
    },
    "/api/drafts": {
      "post": {"tags": ["drafts"], "summary": "Create complaint draft"}
    },
    "/api/drafts/{id}": {
      "delete": {"tags": ["drafts"], "summary": "Discard draft", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}]}
    },
    "/api/drafts/{id}/classify": {
      "post": {"tags": ["drafts"], "summary": "Classify draft and merge suggestion", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}]}
    },
    "/api/drafts/{id}/submit": {
      "post": {"tags": ["drafts"], "summary": "Submit draft", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}]}
    },
    "/api/chat/sessions": {
      "post": {"tags": ["chat"], "summary": "Start chat session"}
    },
    "/api/chat/sessions/{id}/messages": {
      "post": {"tags": ["chat"], "summary": "Send chat message", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}]}
    },
    "/api/articles/summarize": {
      "post": {"tags": ["articles"], "summary": "Summarize news article"}
    },
    "/api/admin/complaints/{id}/status": {
      "patch": {"tags": ["admin"], "summary": "Update complaint status", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "X-Admin-Key", "in": "header", "type": "string"}]}
    }
  }
}`

func init() {
	swag.Register(swag.Name, &doc{})
}

type doc struct{}

func (d *doc) ReadDoc() string {
	return docTemplate
}
