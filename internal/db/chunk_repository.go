package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	runtimeCollection = "runtime"
	chunksCollection  = "chunks"
)

// firestoreChunkStore implements RemoteStore on Firestore: one meta document
// at runtime/<docID> and its chunk documents under runtime/<docID>/chunks.
type firestoreChunkStore struct {
	client      *firestore.Client
	docID       string
	maxBatchOps int
}

// NewFirestoreChunkStore creates the Firestore-backed remote store.
// maxBatchOps bounds one committed write batch and must not exceed the
// backend's 500-operation limit.
func NewFirestoreChunkStore(client *firestore.Client, docID string, maxBatchOps int) (RemoteStore, error) {
	if client == nil {
		return nil, errors.New("firestore client is required")
	}
	if docID == "" {
		return nil, errors.New("docID is required")
	}
	if maxBatchOps <= 0 || maxBatchOps > 500 {
		return nil, fmt.Errorf("maxBatchOps %d out of range", maxBatchOps)
	}
	return &firestoreChunkStore{client: client, docID: docID, maxBatchOps: maxBatchOps}, nil
}

func (r *firestoreChunkStore) metaRef() *firestore.DocumentRef {
	return r.client.Collection(runtimeCollection).Doc(r.docID)
}

func (r *firestoreChunkStore) chunksRef() *firestore.CollectionRef {
	return r.metaRef().Collection(chunksCollection)
}

func (r *firestoreChunkStore) LoadMeta(ctx context.Context) (*ChunkMeta, error) {
	snap, err := r.metaRef().Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get meta document: %w", err)
	}
	if !snap.Exists() {
		return nil, nil
	}
	var meta ChunkMeta
	if err := snap.DataTo(&meta); err != nil {
		return nil, fmt.Errorf("decode meta document: %w", err)
	}
	return &meta, nil
}

func (r *firestoreChunkStore) LoadChunks(ctx context.Context) ([]Chunk, error) {
	var chunks []Chunk
	iter := r.chunksRef().Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return chunks, nil
		}
		if err != nil {
			return nil, fmt.Errorf("iterate chunk documents: %w", err)
		}
		var chunk Chunk
		if err := snap.DataTo(&chunk); err != nil {
			return nil, fmt.Errorf("decode chunk %s: %w", snap.Ref.ID, err)
		}
		chunks = append(chunks, chunk)
	}
}

// Replace rewrites the whole remote database: delete every chunk document,
// write the new set, then the meta document last so a reader never sees a
// stamp newer than its chunks.
func (r *firestoreChunkStore) Replace(ctx context.Context, chunks []Chunk, meta ChunkMeta) error {
	refs, err := r.listChunkRefs(ctx)
	if err != nil {
		return err
	}

	batch := r.client.Batch()
	ops := 0
	flush := func() error {
		if ops == 0 {
			return nil
		}
		if _, err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		batch = r.client.Batch()
		ops = 0
		return nil
	}

	for _, ref := range refs {
		batch.Delete(ref)
		if ops++; ops >= r.maxBatchOps {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	for _, chunk := range chunks {
		ref := r.chunksRef().Doc(fmt.Sprintf("%s-%04d", chunk.Key, chunk.Order))
		batch.Set(ref, chunk)
		if ops++; ops >= r.maxBatchOps {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	if _, err := r.metaRef().Set(ctx, meta); err != nil {
		return fmt.Errorf("write meta document: %w", err)
	}
	return nil
}

func (r *firestoreChunkStore) listChunkRefs(ctx context.Context) ([]*firestore.DocumentRef, error) {
	var refs []*firestore.DocumentRef
	iter := r.chunksRef().DocumentRefs(ctx)
	for {
		ref, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return refs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("list chunk documents: %w", err)
		}
		refs = append(refs, ref)
	}
}

// WatchMeta subscribes to the meta document and invokes onChange for every
// remote snapshot. A canceled context is a clean stop, not an error.
func (r *firestoreChunkStore) WatchMeta(ctx context.Context, onChange func()) error {
	snaps := r.metaRef().Snapshots(ctx)
	defer snaps.Stop()
	for {
		snap, err := snaps.Next()
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("meta snapshot stream: %w", err)
		}
		if snap != nil && snap.Exists() {
			onChange()
		}
	}
}
