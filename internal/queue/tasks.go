package queue

const TypeDocumentIngest = "document:ingest"

// DocumentIngestPayload identifies a pending url document whose content
// still has to be fetched and embedded.
type DocumentIngestPayload struct {
	DocumentID string `json:"document_id"`
	ProjectID  string `json:"project_id"`
}
