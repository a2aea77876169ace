package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Kenai Land Sales API",
        "description": "Land listings marketplace: browse parcels, post paid listings, message sellers",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Accounts and sessions"},
        {"name": "Listings", "description": "Browse and manage land listings"},
        {"name": "Payments", "description": "Listing fees and featured placement"},
        {"name": "Messages", "description": "Contact seller"},
        {"name": "Media", "description": "Listing images and documents"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Create an account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout current session",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/listings": {
            "get": {
                "tags": ["Listings"],
                "summary": "Browse active listings",
                "parameters": [
                    {"name": "minPrice", "in": "query", "type": "number"},
                    {"name": "maxPrice", "in": "query", "type": "number"},
                    {"name": "minAcreage", "in": "query", "type": "number"},
                    {"name": "location", "in": "query", "type": "string"},
                    {"name": "roadAccess", "in": "query", "type": "string", "enum": ["paved", "gravel", "trail", "none"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Unable to load listings"}
                }
            },
            "post": {
                "tags": ["Listings"],
                "summary": "Post a new listing",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateListingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created with checkout session"},
                    "402": {"description": "Payment failed, listing saved"}
                }
            }
        },
        "/listings/{id}": {
            "get": {
                "tags": ["Listings"],
                "summary": "Listing detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Listings"],
                "summary": "Update own listing",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateListingRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/listings/mine": {
            "get": {
                "tags": ["Listings"],
                "summary": "List own listings",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/listings/mine/export.csv": {
            "get": {
                "tags": ["Listings"],
                "summary": "Download own listings as CSV",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "CSV file"}
                }
            }
        },
        "/listings/{id}/checkout": {
            "post": {
                "tags": ["Payments"],
                "summary": "Open a new checkout session for an unpaid listing",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Listing fee already paid"}
                }
            }
        },
        "/listings/{id}/feature": {
            "post": {
                "tags": ["Payments"],
                "summary": "Open a checkout session for featured placement",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/listings/{id}/sheet.pdf": {
            "get": {
                "tags": ["Listings"],
                "summary": "Printable property sheet",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF file"}
                }
            }
        },
        "/listings/{id}/images": {
            "post": {
                "tags": ["Media"],
                "summary": "Attach an image to an owned listing",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/listings/{id}/documents": {
            "post": {
                "tags": ["Media"],
                "summary": "Attach a document to an owned listing",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created with signed download token"}
                }
            }
        },
        "/media/{token}": {
            "get": {
                "tags": ["Media"],
                "summary": "Download a document via signed token",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        },
        "/payments/webhook": {
            "post": {
                "tags": ["Payments"],
                "summary": "Stripe webhook receiver",
                "responses": {
                    "200": {"description": "Processed"},
                    "401": {"description": "Invalid signature"}
                }
            }
        },
        "/payments": {
            "get": {
                "tags": ["Payments"],
                "summary": "Own payment history",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/messages": {
            "post": {
                "tags": ["Messages"],
                "summary": "Message a listing owner",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SendMessageRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"}
                }
            },
            "get": {
                "tags": ["Messages"],
                "summary": "List received messages",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/messages/{id}/read": {
            "post": {
                "tags": ["Messages"],
                "summary": "Mark a message as read",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "full_name": {"type": "string"},
                "phone": {"type": "string"}
            },
            "required": ["email", "password", "full_name"]
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CreateListingRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "price": {"type": "string"},
                "acreage": {"type": "string"},
                "location": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "zoning": {"type": "string"},
                "parcel_number": {"type": "string"},
                "road_access": {"type": "string", "enum": ["paved", "gravel", "trail", "none"]},
                "utilities_water": {"type": "boolean"},
                "utilities_electric": {"type": "boolean"},
                "utilities_sewer": {"type": "boolean"},
                "utilities_gas": {"type": "boolean"},
                "topography": {"type": "string"},
                "land_use_suggestions": {"type": "string"},
                "property_tax_annual": {"type": "string"},
                "survey_available": {"type": "boolean"},
                "video_url": {"type": "string"}
            },
            "required": ["title", "description", "price", "acreage", "location", "road_access"]
        },
        "SendMessageRequest": {
            "type": "object",
            "properties": {
                "listing_id": {"type": "string"},
                "body": {"type": "string"}
            },
            "required": ["listing_id", "body"]
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
