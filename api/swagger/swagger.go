package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "OneID API",
        "description": "Central login platform: token issuance, validation, refresh and revocation",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Login", "description": "Password and federated login"},
        {"name": "Tokens", "description": "Token lifecycle"},
        {"name": "Profile", "description": "Permission-gated user attributes"}
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
        "/api/v1/login": {
            "post": {
                "tags": ["Login"],
                "summary": "Password login",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Envelope with openid and login_code"}
                }
            }
        },
        "/api/v1/federated/authorize": {
            "get": {
                "tags": ["Login"],
                "summary": "Start federated login",
                "parameters": [
                    {"name": "app_id", "in": "query", "type": "string", "required": true},
                    {"name": "secret_key", "in": "query", "type": "string", "required": true},
                    {"name": "provider", "in": "query", "type": "string", "required": true},
                    {"name": "scope", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Envelope with signed state token"}
                }
            }
        },
        "/api/v1/federated/callback": {
            "post": {
                "tags": ["Login"],
                "summary": "Complete federated login",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/FederatedCallbackRequest"}}
                ],
                "responses": {
                    "200": {"description": "Envelope with openid and login_code"}
                }
            }
        },
        "/api/v1/oauth2/token": {
            "post": {
                "tags": ["Tokens"],
                "summary": "Issue token pair",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/IssueTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "Envelope with access_token, refresh_token, expires_at"}
                }
            }
        },
        "/api/v1/oauth2/status": {
            "post": {
                "tags": ["Tokens"],
                "summary": "Check login status",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "Envelope with user_uuid, permissions, remaining_time"}
                }
            }
        },
        "/api/v1/oauth2/refresh": {
            "post": {
                "tags": ["Tokens"],
                "summary": "Refresh access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshRequest"}}
                ],
                "responses": {
                    "200": {"description": "Envelope with new access_token and expires_at"}
                }
            }
        },
        "/api/v1/oauth2/logout": {
            "post": {
                "tags": ["Tokens"],
                "summary": "Logout",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LogoutRequest"}}
                ],
                "responses": {
                    "200": {"description": "Envelope confirming revocation"}
                }
            }
        },
        "/api/v1/user/email": {
            "post": {
                "tags": ["Profile"],
                "summary": "Fetch user email",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResourceRequest"}}
                ],
                "responses": {
                    "200": {"description": "Envelope with email"}
                }
            }
        },
        "/api/v1/user/profile": {
            "post": {
                "tags": ["Profile"],
                "summary": "Fetch user profile",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResourceRequest"}}
                ],
                "responses": {
                    "200": {"description": "Envelope with nickname and avatar"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["app_id", "secret_key", "email", "password"],
            "properties": {
                "app_id": {"type": "string"},
                "secret_key": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "scope": {"type": "string"}
            }
        },
        "FederatedCallbackRequest": {
            "type": "object",
            "required": ["state", "subject"],
            "properties": {
                "state": {"type": "string"},
                "subject": {"type": "string"},
                "email": {"type": "string"},
                "nickname": {"type": "string"},
                "avatar": {"type": "string"}
            }
        },
        "IssueTokenRequest": {
            "type": "object",
            "required": ["app_id", "secret_key", "openid", "login_code"],
            "properties": {
                "app_id": {"type": "string"},
                "secret_key": {"type": "string"},
                "openid": {"type": "string"},
                "login_code": {"type": "string"}
            }
        },
        "StatusRequest": {
            "type": "object",
            "required": ["access_token", "app_id", "openid"],
            "properties": {
                "access_token": {"type": "string"},
                "app_id": {"type": "string"},
                "openid": {"type": "string"}
            }
        },
        "RefreshRequest": {
            "type": "object",
            "required": ["access_token", "refresh_token", "app_id", "openid"],
            "properties": {
                "access_token": {"type": "string"},
                "refresh_token": {"type": "string"},
                "app_id": {"type": "string"},
                "openid": {"type": "string"}
            }
        },
        "LogoutRequest": {
            "type": "object",
            "required": ["access_token", "refresh_token", "app_id", "openid"],
            "properties": {
                "access_token": {"type": "string"},
                "refresh_token": {"type": "string"},
                "app_id": {"type": "string"},
                "openid": {"type": "string"}
            }
        },
        "ResourceRequest": {
            "type": "object",
            "required": ["access_token", "app_id", "openid", "secret_key"],
            "properties": {
                "access_token": {"type": "string"},
                "app_id": {"type": "string"},
                "openid": {"type": "string"},
                "secret_key": {"type": "string"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {"type": "object"},
                "message": {"type": "string"},
                "timestamp": {"type": "integer"}
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
