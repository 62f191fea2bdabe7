package server

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client is a typed wrapper over a versionstore gRPC connection
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Result is the outcome of a mutating store call
type Result struct {
	Success   bool
	Outcome   string
	Message   string
	Version   int
	Content   string
	LockToken string
	Merged    bool
}

// VersionView is one version record as seen over the wire
type VersionView struct {
	Version            int
	Content            string
	Date               time.Time
	AuthorID           string
	AuthorName         string
	Description        string
	ParentBranch       string
	ParentVersion      int
	MergedFrom         string
	MergedVersion      int
	ConflictResolution bool
}

// DocumentView is a document snapshot as seen over the wire
type DocumentView struct {
	ID           string
	Title        string
	Content      string
	Version      int
	AuthorID     string
	ActiveBranch string
	Locked       bool
	History      []string
}

// Call invokes a service method with a raw field map
func (c *Client) Call(ctx context.Context, method string, fields map[string]interface{}) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) result(ctx context.Context, method string, fields map[string]interface{}) (Result, error) {
	out, err := c.Call(ctx, method, fields)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Success:   boolField(out, "success"),
		Outcome:   stringField(out, "outcome"),
		Message:   stringField(out, "message"),
		Version:   intField(out, "version"),
		Content:   stringField(out, "content"),
		LockToken: stringField(out, "lock_token"),
		Merged:    boolField(out, "merged"),
	}, nil
}

func documentView(out *structpb.Struct) DocumentView {
	view := DocumentView{
		ID:           stringField(out, "id"),
		Title:        stringField(out, "title"),
		Content:      stringField(out, "content"),
		Version:      intField(out, "version"),
		AuthorID:     stringField(out, "author_id"),
		ActiveBranch: stringField(out, "active_branch"),
		Locked:       boolField(out, "locked"),
	}
	for _, v := range out.GetFields()["history"].GetListValue().GetValues() {
		view.History = append(view.History, stringField(v.GetStructValue(), "message"))
	}
	return view
}

func (c *Client) RegisterUser(ctx context.Context, name string) (string, error) {
	out, err := c.Call(ctx, "RegisterUser", map[string]interface{}{"name": name})
	if err != nil {
		return "", err
	}
	return stringField(out, "user_id"), nil
}

func (c *Client) CreateDocument(ctx context.Context, title, content, authorID string) (DocumentView, error) {
	out, err := c.Call(ctx, "CreateDocument", map[string]interface{}{
		"title":     title,
		"content":   content,
		"author_id": authorID,
	})
	if err != nil {
		return DocumentView{}, err
	}
	return documentView(out), nil
}

func (c *Client) GetDocument(ctx context.Context, docID string) (DocumentView, error) {
	out, err := c.Call(ctx, "GetDocument", map[string]interface{}{"document_id": docID})
	if err != nil {
		return DocumentView{}, err
	}
	return documentView(out), nil
}

func (c *Client) EditDocument(ctx context.Context, docID, content, userID string) (DocumentView, error) {
	out, err := c.Call(ctx, "EditDocument", map[string]interface{}{
		"document_id": docID,
		"content":     content,
		"user_id":     userID,
	})
	if err != nil {
		return DocumentView{}, err
	}
	return documentView(out), nil
}

func (c *Client) CreateBranch(ctx context.Context, docID, branch, userID string) (Result, error) {
	return c.result(ctx, "CreateBranch", map[string]interface{}{
		"document_id": docID,
		"branch":      branch,
		"user_id":     userID,
	})
}

func (c *Client) SwitchBranch(ctx context.Context, docID, branch, userID string) (Result, error) {
	return c.result(ctx, "SwitchBranch", map[string]interface{}{
		"document_id": docID,
		"branch":      branch,
		"user_id":     userID,
	})
}

func (c *Client) Commit(ctx context.Context, docID, userID, description, lockToken string) (Result, error) {
	return c.result(ctx, "Commit", map[string]interface{}{
		"document_id": docID,
		"user_id":     userID,
		"description": description,
		"lock_token":  lockToken,
	})
}

func (c *Client) Merge(ctx context.Context, docID, source, target, userID, lockToken string) (Result, error) {
	return c.result(ctx, "Merge", map[string]interface{}{
		"document_id": docID,
		"source":      source,
		"target":      target,
		"user_id":     userID,
		"lock_token":  lockToken,
	})
}

func (c *Client) ResolveConflict(ctx context.Context, docID, content, userID, description, lockToken string) (Result, error) {
	return c.result(ctx, "ResolveConflict", map[string]interface{}{
		"document_id": docID,
		"content":     content,
		"user_id":     userID,
		"description": description,
		"lock_token":  lockToken,
	})
}

func (c *Client) Checkout(ctx context.Context, docID string, version int, userID string) (Result, error) {
	return c.result(ctx, "Checkout", map[string]interface{}{
		"document_id": docID,
		"version":     version,
		"user_id":     userID,
	})
}

func (c *Client) Lock(ctx context.Context, docID, userID string) (Result, error) {
	return c.result(ctx, "Lock", map[string]interface{}{
		"document_id": docID,
		"user_id":     userID,
	})
}

func (c *Client) Unlock(ctx context.Context, docID, userID string) (Result, error) {
	return c.result(ctx, "Unlock", map[string]interface{}{
		"document_id": docID,
		"user_id":     userID,
	})
}

// LockStatus reports whether the document is locked and by whom
func (c *Client) LockStatus(ctx context.Context, docID string) (bool, string, error) {
	out, err := c.Call(ctx, "LockStatus", map[string]interface{}{"document_id": docID})
	if err != nil {
		return false, "", err
	}
	return boolField(out, "locked"), stringField(out, "holder_id"), nil
}

// Branches returns branch names in creation order and the active branch
func (c *Client) Branches(ctx context.Context, docID string) ([]string, string, error) {
	out, err := c.Call(ctx, "Branches", map[string]interface{}{"document_id": docID})
	if err != nil {
		return nil, "", err
	}
	return stringList(out, "branches"), stringField(out, "active"), nil
}

// History returns a branch's versions; an empty branch means active
func (c *Client) History(ctx context.Context, docID, branch string) ([]VersionView, error) {
	out, err := c.Call(ctx, "History", map[string]interface{}{
		"document_id": docID,
		"branch":      branch,
	})
	if err != nil {
		return nil, err
	}

	var versions []VersionView
	for _, v := range out.GetFields()["versions"].GetListValue().GetValues() {
		rec := v.GetStructValue()
		versions = append(versions, VersionView{
			Version:            intField(rec, "version"),
			Content:            stringField(rec, "content"),
			Date:               parseTime(stringField(rec, "date")),
			AuthorID:           stringField(rec, "author_id"),
			AuthorName:         stringField(rec, "author_name"),
			Description:        stringField(rec, "description"),
			ParentBranch:       stringField(rec, "parent_branch"),
			ParentVersion:      intField(rec, "parent_version"),
			MergedFrom:         stringField(rec, "merged_from"),
			MergedVersion:      intField(rec, "merged_version"),
			ConflictResolution: boolField(rec, "conflict_resolution"),
		})
	}
	return versions, nil
}
