package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Snapshot Lifecycle API",
        "description": "Classification based retention policies, legal holds and enforcement for backup snapshots.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Lifecycle Policies", "description": "Retention policies, dry runs and enforcement"},
        {"name": "Lifecycle", "description": "Organization wide previews and the deletion log"},
        {"name": "Legal Holds", "description": "Holds that block deletion of a snapshot"}
    ],
    "paths": {
        "/lifecycle-policies": {
            "get": {
                "tags": ["Lifecycle Policies"],
                "summary": "List lifecycle policies",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Lifecycle Policies"],
                "summary": "Create lifecycle policy",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateLifecyclePolicyRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lifecycle-policies/{id}": {
            "get": {
                "tags": ["Lifecycle Policies"],
                "summary": "Get lifecycle policy",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Lifecycle Policies"],
                "summary": "Update lifecycle policy",
                "description": "Partial update. Omitted fields are unchanged; supplied rules replace the rule set.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateLifecyclePolicyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Lifecycle Policies"],
                "summary": "Delete lifecycle policy",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lifecycle-policies/{id}/dry-run": {
            "post": {
                "tags": ["Lifecycle Policies"],
                "summary": "Preview enforcement of a policy",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/DryRunEnvelope"}},
                    "503": {"description": "Snapshot source unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lifecycle-policies/{id}/enforce": {
            "post": {
                "tags": ["Lifecycle Policies"],
                "summary": "Enforce a policy now",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/EnforcementEnvelope"}},
                    "409": {"description": "Enforcement already running", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Policy is not active", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Snapshot source failed; committed deletions are reported", "schema": {"$ref": "#/definitions/EnforcementEnvelope"}}
                }
            }
        },
        "/lifecycle-policies/{id}/deletions": {
            "get": {
                "tags": ["Lifecycle Policies"],
                "summary": "List deletions made by a policy",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lifecycle-policies/{id}/reconcile": {
            "post": {
                "tags": ["Lifecycle Policies"],
                "summary": "Recompute policy counters from the deletion log",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lifecycle/dry-run": {
            "post": {
                "tags": ["Lifecycle"],
                "summary": "Preview unsaved retention rules",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DryRunRulesRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/DryRunEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lifecycle/deletions": {
            "get": {
                "tags": ["Lifecycle"],
                "summary": "List recent snapshot deletions",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lifecycle/deletions/export": {
            "get": {
                "tags": ["Lifecycle"],
                "summary": "Download recent snapshot deletions",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/legal-holds": {
            "get": {
                "tags": ["Legal Holds"],
                "summary": "List legal holds",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/legal-holds/{snapshot_id}": {
            "put": {
                "tags": ["Legal Holds"],
                "summary": "Place or update a legal hold",
                "parameters": [
                    {"name": "snapshot_id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PlaceLegalHoldRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Legal Holds"],
                "summary": "Lift a legal hold",
                "parameters": [
                    {"name": "snapshot_id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Lifted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "RetentionDuration": {
            "type": "object",
            "properties": {
                "min_days": {"type": "integer", "minimum": 0},
                "max_days": {"type": "integer", "minimum": 0, "description": "0 means no ceiling"}
            }
        },
        "RetentionRuleRow": {
            "type": "object",
            "properties": {
                "level": {"type": "string", "enum": ["public", "internal", "confidential", "restricted"]},
                "retention": {"$ref": "#/definitions/RetentionDuration"}
            },
            "required": ["level", "retention"]
        },
        "CreateLifecyclePolicyRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "status": {"type": "string", "enum": ["draft", "active", "disabled"]},
                "enforcement_mode": {"type": "string", "enum": ["must_delete_only", "include_can_delete"]},
                "rules": {"type": "array", "items": {"$ref": "#/definitions/RetentionRuleRow"}},
                "repository_ids": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["name", "rules"]
        },
        "UpdateLifecyclePolicyRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "status": {"type": "string", "enum": ["draft", "active", "disabled"]},
                "enforcement_mode": {"type": "string", "enum": ["must_delete_only", "include_can_delete"]},
                "rules": {"type": "array", "items": {"$ref": "#/definitions/RetentionRuleRow"}},
                "repository_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "DryRunRulesRequest": {
            "type": "object",
            "properties": {
                "rules": {"type": "array", "items": {"$ref": "#/definitions/RetentionRuleRow"}},
                "repository_ids": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["rules"]
        },
        "PlaceLegalHoldRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            },
            "required": ["reason"]
        },
        "Evaluation": {
            "type": "object",
            "properties": {
                "snapshot_id": {"type": "string"},
                "repository_id": {"type": "string"},
                "snapshot_time": {"type": "string", "format": "date-time"},
                "size_bytes": {"type": "integer"},
                "age_days": {"type": "integer"},
                "classification_level": {"type": "string"},
                "action": {"type": "string", "enum": ["keep", "can_delete", "must_delete", "hold"]},
                "reason": {"type": "string"},
                "min_retention_days": {"type": "integer"},
                "max_retention_days": {"type": "integer"},
                "days_until_deletable": {"type": "integer"},
                "days_until_auto_delete": {"type": "integer"},
                "is_on_legal_hold": {"type": "boolean"}
            }
        },
        "DryRunResult": {
            "type": "object",
            "properties": {
                "policy_id": {"type": "string"},
                "total_snapshots": {"type": "integer"},
                "keep_count": {"type": "integer"},
                "can_delete_count": {"type": "integer"},
                "must_delete_count": {"type": "integer"},
                "hold_count": {"type": "integer"},
                "total_size_to_delete": {"type": "integer"},
                "evaluations": {"type": "array", "items": {"$ref": "#/definitions/Evaluation"}}
            }
        },
        "EnforcementReport": {
            "type": "object",
            "properties": {
                "run_id": {"type": "string"},
                "policy_id": {"type": "string"},
                "org_id": {"type": "string"},
                "mode": {"type": "string"},
                "trigger": {"type": "string", "enum": ["scheduler", "manual"]},
                "started_at": {"type": "string", "format": "date-time"},
                "finished_at": {"type": "string", "format": "date-time"},
                "deleted_count": {"type": "integer"},
                "bytes_reclaimed": {"type": "integer"},
                "skipped_count": {"type": "integer"},
                "cancelled": {"type": "boolean"},
                "error": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "limit": {"type": "integer"},
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
        },
        "DryRunEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/DryRunResult"},
                "error": {"$ref": "#/definitions/APIError"}
            }
        },
        "EnforcementEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/EnforcementReport"},
                "error": {"$ref": "#/definitions/APIError"}
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
