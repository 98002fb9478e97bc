// Package docs registers the OpenAPI document served under /swagger/.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/v1/ledger/init": {
            "post": {
                "summary": "Initialize the ledger admin list",
                "parameters": [
                    {"in": "header", "name": "X-User-Id", "type": "string", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/InitLedgerRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/LedgerStateResponse"}},
                    "401": {"description": "Missing caller", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Already initialized", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/elections": {
            "get": {
                "summary": "List elections ordered by id",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ListElectionsResponse"}}
                }
            },
            "post": {
                "summary": "Create an election",
                "parameters": [
                    {"in": "header", "name": "X-User-Id", "type": "string", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/CreateElectionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/CreateElectionResponse"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "403": {"description": "Caller is not an admin", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/elections/{election_id}": {
            "get": {
                "summary": "Get one election",
                "parameters": [{"in": "path", "name": "election_id", "type": "integer", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ElectionResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/elections/{election_id}/candidates": {
            "get": {
                "summary": "List candidates of an election",
                "parameters": [{"in": "path", "name": "election_id", "type": "integer", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CandidatesResponse"}}
                }
            },
            "post": {
                "summary": "Register a candidate",
                "parameters": [
                    {"in": "path", "name": "election_id", "type": "integer", "required": true},
                    {"in": "header", "name": "X-User-Id", "type": "string", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/AddCandidateRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/CandidateDTO"}},
                    "409": {"description": "Duplicate or closed", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/elections/{election_id}/votes": {
            "post": {
                "summary": "Cast the caller's vote",
                "parameters": [
                    {"in": "path", "name": "election_id", "type": "integer", "required": true},
                    {"in": "header", "name": "X-User-Id", "type": "string", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/VoteRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/VoteResponse"}},
                    "404": {"description": "Unknown election or candidate", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Not active or already voted", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/elections/{election_id}/voters": {
            "get": {
                "summary": "List voters, optionally for one candidate",
                "parameters": [
                    {"in": "path", "name": "election_id", "type": "integer", "required": true},
                    {"in": "query", "name": "candidate_id", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/VotersResponse"}}
                }
            }
        },
        "/v1/elections/{election_id}/candidates/{candidate_id}/voters": {
            "get": {
                "summary": "List voters of one candidate",
                "parameters": [
                    {"in": "path", "name": "election_id", "type": "integer", "required": true},
                    {"in": "path", "name": "candidate_id", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/VotersResponse"}}
                }
            }
        },
        "/v1/elections/{election_id}/results": {
            "get": {
                "summary": "Tallies and percentages",
                "parameters": [{"in": "path", "name": "election_id", "type": "integer", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResultsResponse"}}
                }
            }
        },
        "/v1/elections/{election_id}/audit": {
            "get": {
                "summary": "Cross-check the stored views of an election",
                "parameters": [{"in": "path", "name": "election_id", "type": "integer", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/AuditResponse"}}
                }
            }
        }
    },
    "definitions": {
        "ErrorResponse": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
        },
        "InitLedgerRequest": {
            "type": "object",
            "properties": {"admins": {"type": "array", "items": {"type": "string"}}}
        },
        "LedgerStateResponse": {
            "type": "object",
            "properties": {
                "admins": {"type": "array", "items": {"type": "string"}},
                "next_election_id": {"type": "integer"},
                "initialized_at_ms": {"type": "integer"}
            }
        },
        "CreateElectionRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "starts_at_ms": {"type": "integer"},
                "ends_at_ms": {"type": "integer"}
            }
        },
        "CreateElectionResponse": {
            "type": "object",
            "properties": {"election_id": {"type": "integer"}}
        },
        "AddCandidateRequest": {
            "type": "object",
            "properties": {"account_id": {"type": "string"}}
        },
        "VoteRequest": {
            "type": "object",
            "properties": {"candidate_id": {"type": "string"}}
        },
        "CandidateDTO": {
            "type": "object",
            "properties": {"account_id": {"type": "string"}, "total_votes": {"type": "integer"}}
        },
        "VoterDTO": {
            "type": "object",
            "properties": {
                "account_id": {"type": "string"},
                "voted_candidate_account_id": {"type": "string"},
                "voted_at_ms": {"type": "integer"}
            }
        },
        "ElectionResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "starts_at_ms": {"type": "integer"},
                "ends_at_ms": {"type": "integer"},
                "candidates": {"type": "array", "items": {"$ref": "#/definitions/CandidateDTO"}},
                "voters": {"type": "array", "items": {"type": "string"}},
                "total_votes": {"type": "integer"},
                "status": {"type": "string", "enum": ["scheduled", "active", "ended"]},
                "created_by": {"type": "string"},
                "created_at_ms": {"type": "integer"}
            }
        },
        "ListElectionsResponse": {
            "type": "object",
            "properties": {"items": {"type": "array", "items": {"$ref": "#/definitions/ElectionResponse"}}}
        },
        "CandidatesResponse": {
            "type": "object",
            "properties": {
                "election_id": {"type": "integer"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/CandidateDTO"}}
            }
        },
        "VotersResponse": {
            "type": "object",
            "properties": {
                "election_id": {"type": "integer"},
                "candidate_id": {"type": "string"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/VoterDTO"}}
            }
        },
        "VoteResponse": {
            "type": "object",
            "properties": {
                "election_id": {"type": "integer"},
                "voter": {"$ref": "#/definitions/VoterDTO"}
            }
        },
        "ResultsResponse": {
            "type": "object",
            "properties": {
                "election_id": {"type": "integer"},
                "name": {"type": "string"},
                "status": {"type": "string"},
                "total_votes": {"type": "integer"},
                "candidates": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "account_id": {"type": "string"},
                            "total_votes": {"type": "integer"},
                            "percentage": {"type": "number"}
                        }
                    }
                }
            }
        },
        "AuditResponse": {
            "type": "object",
            "properties": {
                "election_id": {"type": "integer"},
                "consistent": {"type": "boolean"},
                "violations": {"type": "array", "items": {"type": "string"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Election Ledger API",
	Description:      "Time-bounded elections, candidate registration and one vote per caller.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
