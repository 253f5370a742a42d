package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Attendance Report API",
        "description": "Generates ephemeral attendance report PDFs with TTL-bound downloads",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Reports", "description": "Report generation, download and reclamation"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Generate an attendance report PDF",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateReportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/GenerateReportResponse"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "502": {"description": "Upstream fetch failed", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/v1/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a generated report",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF document"},
                    "404": {"description": "Unknown or expired artifact", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/v1/reports/_cleanup": {
            "delete": {
                "tags": ["Reports"],
                "summary": "Trigger an immediate expiry sweep",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CleanupResponse"}}
                }
            }
        },
        "/api/v1/reports/_status": {
            "get": {
                "tags": ["Reports"],
                "summary": "Artifact store status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/StatusResponse"}}
                }
            }
        }
    },
    "definitions": {
        "GenerateReportRequest": {
            "type": "object",
            "required": ["subjectId", "period"],
            "properties": {
                "subjectId": {"type": "string"},
                "period": {"type": "string", "example": "2025-08"},
                "reportType": {"type": "string", "enum": ["monthly"]}
            }
        },
        "GenerateReportResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "downloadUrl": {"type": "string"},
                "expiresAt": {"type": "string", "format": "date-time"}
            }
        },
        "CleanupResponse": {
            "type": "object",
            "properties": {
                "deletedCount": {"type": "integer"}
            }
        },
        "StatusResponse": {
            "type": "object",
            "properties": {
                "activeCount": {"type": "integer"},
                "totalBytes": {"type": "integer"}
            }
        },
        "ErrorBody": {
            "type": "object",
            "properties": {
                "errorCode": {"type": "string"},
                "message": {"type": "string"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
