package kv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const (
	defaultFirestoreCollection  = "cart_slots"
	defaultFirestoreDialTimeout = 10 * time.Second
	envFirestoreEmulatorHost    = "FIRESTORE_EMULATOR_HOST"
	envGoogleProjectID          = "GOOGLE_CLOUD_PROJECT"
)

// FirestoreConfig configures the Firestore-backed store.
type FirestoreConfig struct {
	ProjectID    string
	Collection   string
	EmulatorHost string
	DialTimeout  time.Duration
}

// Firestore keeps one document per key with the slot in the "value" field.
type Firestore struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

type slotDocument struct {
	Value     string    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// NewFirestore creates a client for cfg. Emulator connections skip auth.
func NewFirestore(ctx context.Context, cfg FirestoreConfig, opts ...option.ClientOption) (*Firestore, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		projectID = strings.TrimSpace(os.Getenv(envGoogleProjectID))
	}
	if projectID == "" {
		return nil, errors.New("kv: firestore project id is required")
	}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultFirestoreDialTimeout
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	host := strings.TrimSpace(cfg.EmulatorHost)
	if host == "" {
		host = strings.TrimSpace(os.Getenv(envFirestoreEmulatorHost))
	}
	if host != "" {
		opts = append(opts,
			option.WithoutAuthentication(),
			option.WithEndpoint(host),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}

	client, err := firestore.NewClient(dialCtx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("kv: firestore client: %w", err)
	}
	return NewFirestoreFromClient(client, cfg.Collection), nil
}

// NewFirestoreFromClient wraps an existing client.
func NewFirestoreFromClient(client *firestore.Client, collection string) *Firestore {
	collection = strings.TrimSpace(collection)
	if collection == "" {
		collection = defaultFirestoreCollection
	}
	return &Firestore{
		client:     client,
		collection: collection,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Get implements Store.
func (f *Firestore) Get(ctx context.Context, key string) (string, error) {
	snap, err := f.doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("kv: firestore get %s: %w", key, err)
	}
	var doc slotDocument
	if err := snap.DataTo(&doc); err != nil {
		return "", fmt.Errorf("kv: firestore decode %s: %w", key, err)
	}
	return doc.Value, nil
}

// Set implements Store.
func (f *Firestore) Set(ctx context.Context, key, value string) error {
	_, err := f.doc(key).Set(ctx, slotDocument{Value: value, UpdatedAt: f.now()})
	if err != nil {
		return fmt.Errorf("kv: firestore set %s: %w", key, err)
	}
	return nil
}

// Close releases the Firestore client.
func (f *Firestore) Close() error {
	return f.client.Close()
}

// Firestore document IDs may not contain "/".
func (f *Firestore) doc(key string) *firestore.DocumentRef {
	return f.client.Collection(f.collection).Doc(strings.ReplaceAll(key, "/", "_"))
}
