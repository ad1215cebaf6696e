package vaultapi

import "encoding/json"

// StatusSuccess is the responseStatus of a successful Vault call.
const StatusSuccess = "SUCCESS"

// APIError is one entry of a Vault response's errors list.
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Envelope is the part shared by every Vault JSON response.
type Envelope struct {
	ResponseStatus  string     `json:"responseStatus"`
	ResponseMessage string     `json:"responseMessage,omitempty"`
	Errors          []APIError `json:"errors,omitempty"`
}

// Succeeded reports whether responseStatus is SUCCESS.
func (e Envelope) Succeeded() bool {
	return e.ResponseStatus == StatusSuccess
}

// VaultRef is an entry of the auth response's vaultIds list.
type VaultRef struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name,omitempty"`
	URL  string      `json:"url"`
}

// AuthResponse is the body of POST /api/{version}/auth.
type AuthResponse struct {
	Envelope
	SessionID string      `json:"sessionId"`
	UserID    json.Number `json:"userId"`
	VaultID   json.Number `json:"vaultId"`
	VaultIDs  []VaultRef  `json:"vaultIds"`
}

// StagedFile is the data of a file staging upload response.
type StagedFile struct {
	Kind string `json:"kind,omitempty"`
	Path string `json:"path"`
	Name string `json:"name,omitempty"`
	Size int64  `json:"size,omitempty"`
	MD5  string `json:"file_content_md5,omitempty"`
}

type stageResponse struct {
	Envelope
	Data *StagedFile `json:"data"`
}

// LoadTask identifies the loader job a load request started.
type LoadTask struct {
	JobID  json.Number `json:"job_id"`
	TaskID string      `json:"task_id"`
}

type loadResponse struct {
	Envelope
	Data json.RawMessage `json:"data,omitempty"`
}

// LoadResult is the outcome of a successful load request.
type LoadResult struct {
	Tasks []LoadTask
}

// loadEntry is one element of the loader request body.
type loadEntry struct {
	ObjectType          string `json:"object_type"`
	Object              string `json:"object"`
	Action              string `json:"action"`
	File                string `json:"file"`
	RecordMigrationMode bool   `json:"recordmigrationmode"`
	Order               int    `json:"order"`
}
