package httpapi

// registerRequest is the body of POST /clients
type registerRequest struct {
	TenantID     string `json:"tenant_id"`
	ClientName   string `json:"client_name"`
	BusinessName string `json:"business_name"`
	PublicKey    string `json:"public_key,omitempty"`
}

// registerResponse is returned on successful registration. PrivateKey is
// only present when the relay generated the keypair.
type registerResponse struct {
	Message    string `json:"message"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key,omitempty"`
}

type tenantResponse struct {
	TenantID     string `json:"tenant_id"`
	ClientName   string `json:"client_name"`
	BusinessName string `json:"business_name"`
	PublicKey    string `json:"public_key"`
	CreatedAt    string `json:"created_at"`
}

// ingestRequest is the body of POST /messages/{tenant_id}
type ingestRequest struct {
	SenderID string `json:"sender_id"`
	Message  string `json:"message"`
}

type successResponse struct {
	Message string `json:"message"`
}

// drainRecord carries ciphertext fields and a plaintext timestamp
type drainRecord struct {
	SenderID  string `json:"sender_id"`
	Message   string `json:"message"`
	Intent    string `json:"intent"`
	Timestamp string `json:"timestamp"`
}

type drainResponse struct {
	DBDetails []drainRecord `json:"db_details"`
}

type errorResponse struct {
	Failed string `json:"failed"`
	Code   string `json:"code"`
}

type healthResponse struct {
	Status string `json:"status"`
}
