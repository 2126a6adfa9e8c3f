// Package audit provides security audit logging for SIEM consumption.
// Security-relevant events around API key custody are logged as structured
// JSON under a dedicated logger namespace so they can be filtered and
// alerted on independently of application logs.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventKeyRevealed is logged when a dashboard user reads a plaintext API key.
	EventKeyRevealed SecurityEventType = "api_key_revealed"
	// EventKeyRegenerated is logged when an API key is rotated.
	EventKeyRegenerated SecurityEventType = "api_key_regenerated"
	// EventKeyRejected is logged when ingestion rejects a presented API key.
	EventKeyRejected SecurityEventType = "api_key_rejected"
)

// SecurityEvent represents an auditable security event with the context a
// SIEM needs to correlate it.
type SecurityEvent struct {
	Timestamp     time.Time         `json:"timestamp"`
	EventType     SecurityEventType `json:"event_type"`
	UserID        uuid.UUID         `json:"user_id,omitempty"`
	IntegrationID uuid.UUID         `json:"integration_id,omitempty"`
	ClientIP      string            `json:"client_ip,omitempty"`
	Path          string            `json:"path,omitempty"`
	Severity      string            `json:"severity"` // info, warning, critical
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a security auditor with a dedicated logger
// namespace ("security_audit") for easy filtering in SIEM systems.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogKeyRevealed records that a user read a plaintext API key through the
// dashboard reveal flow. Logged at INFO; reveals are legitimate but every
// one of them must leave a trace.
func (a *SecurityAuditor) LogKeyRevealed(userID, integrationID uuid.UUID, clientIP string) {
	event := SecurityEvent{
		Timestamp:     time.Now().UTC(),
		EventType:     EventKeyRevealed,
		UserID:        userID,
		IntegrationID: integrationID,
		ClientIP:      clientIP,
		Severity:      "info",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Info("Integration API key revealed",
		zap.String("event_json", string(eventJSON)),
		zap.String("user_id", userID.String()),
		zap.String("integration_id", integrationID.String()),
		zap.String("client_ip", clientIP),
		zap.String("severity", "info"),
	)
}

// LogKeyRegenerated records an API key rotation. The previous key stops
// working immediately, so a rotation nobody asked for is worth alerting on.
func (a *SecurityAuditor) LogKeyRegenerated(userID, integrationID uuid.UUID, clientIP string) {
	event := SecurityEvent{
		Timestamp:     time.Now().UTC(),
		EventType:     EventKeyRegenerated,
		UserID:        userID,
		IntegrationID: integrationID,
		ClientIP:      clientIP,
		Severity:      "info",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Info("Integration API key regenerated",
		zap.String("event_json", string(eventJSON)),
		zap.String("user_id", userID.String()),
		zap.String("integration_id", integrationID.String()),
		zap.String("client_ip", clientIP),
		zap.String("severity", "info"),
	)
}

// LogKeyRejected records a failed API key verification on the ingestion
// surface. Logged at WARN: isolated rejections are typos, sustained volume
// from one address is someone guessing keys.
func (a *SecurityAuditor) LogKeyRejected(path, clientIP string) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventKeyRejected,
		ClientIP:  clientIP,
		Path:      path,
		Severity:  "warning",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("API key rejected",
		zap.String("event_json", string(eventJSON)),
		zap.String("path", path),
		zap.String("client_ip", clientIP),
		zap.String("severity", "warning"),
	)
}
