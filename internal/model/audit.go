package model

import "time"

// AuditAction categorizes an audit-trail entry.
type AuditAction string

const (
	AuditCreate  AuditAction = "create"
	AuditUpdate  AuditAction = "update"
	AuditDelete  AuditAction = "delete"
	AuditArchive AuditAction = "archive"
	AuditRestore AuditAction = "restore"
	AuditPurge   AuditAction = "purge"
	AuditImport  AuditAction = "import"
)

// AuditEntry records one mutation of a CRM record for the audit trail.
type AuditEntry struct {
	ID       string      `json:"id"`
	Kind     Kind        `json:"kind"`
	EntityID string      `json:"entity_id"`
	Action   AuditAction `json:"action"`
	Detail   string      `json:"detail,omitempty"`
	Actor    string      `json:"actor,omitempty"`
	At       time.Time   `json:"at"`
}
