package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Teacher Stats API",
        "description": "Payroll statistics for teachers of the scheduling platform",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Statistics", "description": "Teacher-facing statistics computed from the scheduling platform"},
        {"name": "Admin", "description": "Operator views over captured accounts and computed records"},
        {"name": "Authentication", "description": "Operator sign-in"}
    ],
    "paths": {
        "/session": {
            "post": {
                "tags": ["Statistics"],
                "summary": "Start a teacher session",
                "parameters": [
                    {"$ref": "#/parameters/UpstreamToken"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stats/monthly": {
            "post": {
                "tags": ["Statistics"],
                "summary": "Monthly statistics",
                "parameters": [
                    {"$ref": "#/parameters/UpstreamToken"},
                    {"$ref": "#/parameters/Refresh"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MonthlyStatsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/StatisticsEnvelope"}},
                    "400": {"description": "Invalid period", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Upstream token expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Upstream access denied", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Upstream failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "504": {"description": "Upstream timeout", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stats/range": {
            "post": {
                "tags": ["Statistics"],
                "summary": "Date range statistics",
                "parameters": [
                    {"$ref": "#/parameters/UpstreamToken"},
                    {"$ref": "#/parameters/Refresh"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RangeStatsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/StatisticsEnvelope"}},
                    "400": {"description": "Invalid range", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Upstream failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stats/absences/export": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Export absent students",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"$ref": "#/parameters/UpstreamToken"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "month", "in": "query", "type": "integer"},
                    {"name": "start_date", "in": "query", "type": "string", "format": "date"},
                    {"name": "end_date", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "Document", "schema": {"type": "file"}},
                    "400": {"description": "Invalid query", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate admin",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current admin",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/stats": {
            "get": {
                "tags": ["Admin"],
                "summary": "Browse computed statistics",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "kind", "in": "query", "type": "string", "enum": ["monthly", "date_range", "admin"]},
                    {"name": "sort", "in": "query", "type": "string", "enum": ["timestamp", "email", "total_money"]},
                    {"name": "order", "in": "query", "type": "string", "enum": ["asc", "desc"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/teachers": {
            "get": {
                "tags": ["Admin"],
                "summary": "Browse captured teacher accounts",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/teachers/{email}": {
            "get": {
                "tags": ["Admin"],
                "summary": "Teacher account detail",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "email", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/teachers/{email}/stats": {
            "post": {
                "tags": ["Admin"],
                "summary": "Recompute statistics with the stored token",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "email", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AdminRecomputeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/StatisticsEnvelope"}},
                    "400": {"description": "Invalid period or stored token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/visitors": {
            "get": {
                "tags": ["Admin"],
                "summary": "Visitor counter",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "parameters": {
        "UpstreamToken": {"name": "Authorization", "in": "header", "required": true, "type": "string", "description": "Scheduling platform token"},
        "Refresh": {"name": "refresh", "in": "query", "type": "boolean", "description": "Bypass the cache"}
    },
    "definitions": {
        "MonthlyStatsRequest": {
            "type": "object",
            "required": ["year", "month"],
            "properties": {
                "year": {"type": "integer"},
                "month": {"type": "integer", "minimum": 1, "maximum": 12},
                "concurrency": {"type": "integer", "minimum": 1, "maximum": 30}
            }
        },
        "RangeStatsRequest": {
            "type": "object",
            "required": ["start_date", "end_date"],
            "properties": {
                "start_date": {"type": "string", "format": "date"},
                "end_date": {"type": "string", "format": "date"},
                "concurrency": {"type": "integer", "minimum": 1, "maximum": 30}
            }
        },
        "AdminRecomputeRequest": {
            "type": "object",
            "properties": {
                "year": {"type": "integer"},
                "month": {"type": "integer"},
                "start_date": {"type": "string", "format": "date"},
                "end_date": {"type": "string", "format": "date"},
                "concurrency": {"type": "integer"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "AbsenceEvent": {
            "type": "object",
            "properties": {
                "studentName": {"type": "string"},
                "fromDate": {"type": "string"},
                "className": {"type": "string"}
            }
        },
        "StatisticsReport": {
            "type": "object",
            "properties": {
                "totalFinishedCount": {"type": "integer"},
                "totalParticipationScore": {"type": "number"},
                "totalClasses": {"type": "number"},
                "totalMoney": {"type": "number"},
                "absentStudents": {"type": "array", "items": {"$ref": "#/definitions/AbsenceEvent"}},
                "period": {"type": "object"},
                "unitRate": {"type": "number"},
                "diagnostics": {"type": "object"},
                "generatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "StatisticsEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/StatisticsReport"},
                "meta": {"type": "object"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
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
