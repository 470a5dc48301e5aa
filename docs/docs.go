// Package docs описание HTTP API в формате Swagger 2.0 для swaggo
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "description": "Возвращает статус и время работы сервера",
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Проверка состояния",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/server.HealthResponse"}
                    }
                }
            }
        },
        "/providers/stats": {
            "get": {
                "description": "Счетчики запросов, ошибок и задержек по каждому источнику",
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Статистика провайдеров",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "array",
                                "items": {"$ref": "#/definitions/websearch.ProviderStats"}
                            }
                        }
                    }
                }
            }
        },
        "/token": {
            "post": {
                "description": "Обменивает логин и пароль на JWT токен для /retrieval",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Получить токен",
                "parameters": [
                    {
                        "description": "Учетные данные",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/server.TokenRequest"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "object", "additionalProperties": {"type": "string"}}
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}
                    },
                    "404": {
                        "description": "Авторизация выключена",
                        "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}
                    }
                }
            }
        },
        "/retrieval": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Принимает требования поездки и возвращает матрицу кандидатов",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["retrieval"],
                "summary": "Запустить поиск",
                "parameters": [
                    {
                        "description": "Требования поездки",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"type": "object"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/retrieval.Document"}
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}
                    }
                }
            }
        }
    },
    "definitions": {
        "geo.Point": {
            "type": "object",
            "properties": {
                "latitude": {"type": "number"},
                "longitude": {"type": "number"}
            }
        },
        "middleware.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "request_id": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "retrieval.Document": {
            "type": "object",
            "properties": {
                "retrieval": {"$ref": "#/definitions/retrieval.Section"}
            }
        },
        "retrieval.OutputCandidate": {
            "type": "object",
            "properties": {
                "geo": {"$ref": "#/definitions/geo.Point"},
                "geo_cluster_id": {"type": "string"},
                "low_carbon_score": {"type": "integer"},
                "name": {"type": "string"},
                "onsite_co2_kg": {"type": "number"},
                "place_id": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}}
            }
        },
        "retrieval.PlacesMatrix": {
            "type": "object",
            "properties": {
                "candidates": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/retrieval.OutputCandidate"}
                }
            }
        },
        "retrieval.Section": {
            "type": "object",
            "properties": {
                "places_matrix": {"$ref": "#/definitions/retrieval.PlacesMatrix"}
            }
        },
        "server.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "uptime": {"type": "string"}
            }
        },
        "server.TokenRequest": {
            "type": "object",
            "required": ["password", "username"],
            "properties": {
                "password": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "websearch.ProviderStats": {
            "type": "object",
            "properties": {
                "avg_response_time_ms": {"type": "integer"},
                "failure_rate": {"type": "number"},
                "last_error": {"type": "string"},
                "last_failure": {"type": "string"},
                "last_success": {"type": "string"},
                "provider_name": {"type": "string"},
                "requests_failed": {"type": "integer"},
                "requests_success": {"type": "integer"},
                "requests_total": {"type": "integer"},
                "updated_at": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo метаданные документации, меняются при регистрации маршрутов
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Retrieval Agent API",
	Description:      "Adaptive place retrieval for trip planning",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
