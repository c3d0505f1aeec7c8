// Package api declares the recipebook.v1.Backend gRPC service: its messages,
// the JSON codec it is carried with, and typed client and server bindings.
package api

import "time"

type Empty struct{}

type Identity struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignUpResponse struct {
	Identity Identity `json:"identity"`
}

type SignInResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Identity    Identity  `json:"identity"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type UpdateDisplayRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
}

type Doc struct {
	ID     string `json:"id"`
	Fields Fields `json:"fields"`
}

type DocRef struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

type DocResponse struct {
	Doc Doc `json:"doc"`
}

type AddDocRequest struct {
	Collection string `json:"collection"`
	Fields     Fields `json:"fields"`
}

type AddDocResponse struct {
	ID string `json:"id"`
}

// WriteDocRequest serves SetDoc and UpdateDoc.
type WriteDocRequest struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Fields     Fields `json:"fields"`
}

type ListDocsRequest struct {
	Collection string `json:"collection"`
	OrderBy    string `json:"order_by,omitempty"`
	Desc       bool   `json:"desc,omitempty"`
}

type DocsResponse struct {
	Docs []Doc `json:"docs"`
}

type SubscribeRequest struct {
	Collection string `json:"collection"`
}

type Snapshot struct {
	Collection string `json:"collection"`
	Docs       []Doc  `json:"docs"`
}

type UploadRequest struct {
	Path        string `json:"path"`
	Data        []byte `json:"data"`
	ContentType string `json:"content_type,omitempty"`
}

type PathRequest struct {
	Path string `json:"path"`
}

type URLResponse struct {
	URL string `json:"url"`
}
