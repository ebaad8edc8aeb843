package credstore

import (
	"context"

	"github.com/nerrad567/thingsd/internal/auth"
	"github.com/nerrad567/thingsd/internal/docstore"
)

const (
	usersCollection = "users"

	fieldUsername     = "username"
	fieldPasswordHash = "password_hash"
	fieldAdmin        = "admin"
)

// DocStore keeps user accounts in a document collection. User
// identifiers are collection cids, so they start at zero rather than
// one; nothing above this layer depends on the starting value.
type DocStore struct {
	coll *docstore.Collection
}

// NewDocStore opens the users collection inside db.
func NewDocStore(db *docstore.DB) *DocStore {
	return &DocStore{coll: db.Collection(usersCollection)}
}

// Lookup retrieves a user by username.
func (s *DocStore) Lookup(ctx context.Context, username string) (*auth.User, error) {
	doc, ok := s.coll.FindOne(fieldUsername, username)
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return documentToUser(doc), nil
}

// List returns all users in creation order.
func (s *DocStore) List(ctx context.Context) ([]auth.User, error) {
	docs := s.coll.Items()
	out := make([]auth.User, 0, len(docs))
	for _, doc := range docs {
		out = append(out, *documentToUser(doc))
	}
	return out, nil
}

// Upsert creates or updates the user keyed by username.
func (s *DocStore) Upsert(ctx context.Context, user *auth.User, newHash string) error {
	if doc, ok := s.coll.FindOne(fieldUsername, user.Username); ok {
		doc[fieldAdmin] = user.Admin
		if newHash != "" {
			doc[fieldPasswordHash] = newHash
		}
		cid, _ := doc.CID()
		s.coll.Replace(cid, doc)
		user.ID = cid
		user.PasswordHash, _ = doc[fieldPasswordHash].(string)
		return nil
	}

	if newHash == "" {
		return auth.ErrEmptySecret
	}

	cid := s.coll.Insert(docstore.Document{
		fieldUsername:     user.Username,
		fieldPasswordHash: newHash,
		fieldAdmin:        user.Admin,
	})
	user.ID = cid
	user.PasswordHash = newHash
	return nil
}

// Remove deletes a user by identifier.
func (s *DocStore) Remove(ctx context.Context, id int64) error {
	if !s.coll.Remove(id) {
		return auth.ErrUserNotFound
	}
	return nil
}

// Count returns the total number of accounts.
func (s *DocStore) Count(ctx context.Context) (int, error) {
	return s.coll.Len(), nil
}

// Persist writes the users collection to disk.
func (s *DocStore) Persist(ctx context.Context) error {
	return s.coll.Save()
}

func documentToUser(doc docstore.Document) *auth.User {
	cid, _ := doc.CID()
	username, _ := doc[fieldUsername].(string)
	hash, _ := doc[fieldPasswordHash].(string)
	admin, _ := doc[fieldAdmin].(bool)
	return &auth.User{
		ID:           cid,
		Username:     username,
		PasswordHash: hash,
		Admin:        admin,
	}
}
