package document

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkoval/docuchat/internal/embedding"
	"github.com/vkoval/docuchat/internal/llm"
	"github.com/vkoval/docuchat/internal/models"
	"github.com/vkoval/docuchat/pkg/chunker"
)

type fakeStore struct {
	inserted *models.Document
	updated  *models.Document
	statuses map[uuid.UUID]string
	byID     map[uuid.UUID]*models.Document
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		statuses: make(map[uuid.UUID]string),
		byID:     make(map[uuid.UUID]*models.Document),
	}
}

func (f *fakeStore) Insert(_ context.Context, doc *models.Document) error {
	f.inserted = doc
	f.byID[doc.ID] = doc
	return nil
}

func (f *fakeStore) UpdateIngested(_ context.Context, doc *models.Document) error {
	f.updated = doc
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, _, id uuid.UUID) (*models.Document, error) {
	doc, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("document not found")
	}
	return doc, nil
}

func (f *fakeStore) GetWithEmbeddings(ctx context.Context, projectID, id uuid.UUID) (*models.Document, error) {
	return f.GetByID(ctx, projectID, id)
}

func (f *fakeStore) List(context.Context, uuid.UUID, int, int) ([]models.Document, error) {
	return nil, nil
}

func (f *fakeStore) Delete(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (f *fakeStore) DeleteByProject(context.Context, uuid.UUID) error { return nil }

func (f *fakeStore) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	f.statuses[id] = status
	return nil
}

type fakeQueue struct {
	enqueued []uuid.UUID
	err      error
}

func (f *fakeQueue) EnqueueDocumentIngest(docID, _ uuid.UUID) error {
	f.enqueued = append(f.enqueued, docID)
	return f.err
}

// flakyClient fails embedding calls for texts listed in failTexts.
type flakyClient struct {
	failTexts map[string]bool
	failAll   bool
}

func (f *flakyClient) Embed(_ context.Context, text string) (embedding.Vector, error) {
	if f.failAll || f.failTexts[text] {
		return nil, fmt.Errorf("embed: %w", llm.ErrProviderUnavailable)
	}
	return embedding.Vector{1, 0, 0}, nil
}

func newService(store Store, client embedding.Client, queue IngestQueue) *Service {
	return NewService(store, embedding.NewService(client), queue, chunker.DefaultOptions())
}

func TestCreateText(t *testing.T) {
	projectID := uuid.New()

	t.Run("long content is chunked and embedded", func(t *testing.T) {
		store := newFakeStore()
		svc := newService(store, &flakyClient{}, &fakeQueue{})

		doc, err := svc.CreateText(context.Background(), CreateTextRequest{
			ProjectID: projectID,
			Title:     "handbook",
			Content:   strings.Repeat("a", 2400),
		})
		require.NoError(t, err)

		require.Len(t, doc.Chunks, 3)
		assert.Equal(t, models.DocStatusReady, doc.Status)
		assert.NotNil(t, doc.Embedding)
		for _, c := range doc.Chunks {
			assert.NotNil(t, c.Embedding)
		}
		assert.Same(t, doc, store.inserted)
	})

	t.Run("short content produces no chunks", func(t *testing.T) {
		svc := newService(newFakeStore(), &flakyClient{}, &fakeQueue{})

		doc, err := svc.CreateText(context.Background(), CreateTextRequest{
			ProjectID: projectID,
			Title:     "note",
			Content:   strings.Repeat("b", 500),
		})
		require.NoError(t, err)

		assert.Empty(t, doc.Chunks)
		assert.NotNil(t, doc.Embedding)
	})

	t.Run("partial embedding failure degrades, creation still succeeds", func(t *testing.T) {
		content := strings.Repeat("a", 1000) + strings.Repeat("b", 1000) +
			strings.Repeat("c", 1000) + strings.Repeat("d", 1000) + strings.Repeat("e", 800)
		client := &flakyClient{failTexts: map[string]bool{
			strings.Repeat("b", 1000): true,
			strings.Repeat("d", 1000): true,
		}}

		store := newFakeStore()
		svc := newService(store, client, &fakeQueue{})

		doc, err := svc.CreateText(context.Background(), CreateTextRequest{
			ProjectID: projectID,
			Title:     "flaky",
			Content:   content,
		})
		require.NoError(t, err)

		require.Len(t, doc.Chunks, 5)
		var withVector int
		for _, c := range doc.Chunks {
			if c.Embedding != nil {
				withVector++
			}
		}
		assert.Equal(t, 3, withVector)
		assert.Equal(t, models.DocStatusDegraded, doc.Status)
		assert.NotNil(t, store.inserted)
	})

	t.Run("total provider outage still persists the document", func(t *testing.T) {
		store := newFakeStore()
		svc := newService(store, &flakyClient{failAll: true}, &fakeQueue{})

		doc, err := svc.CreateText(context.Background(), CreateTextRequest{
			ProjectID: projectID,
			Title:     "offline",
			Content:   strings.Repeat("x", 1500),
		})
		require.NoError(t, err)

		assert.Equal(t, models.DocStatusDegraded, doc.Status)
		assert.Nil(t, doc.Embedding)
		for _, c := range doc.Chunks {
			assert.Nil(t, c.Embedding)
		}
		assert.NotNil(t, store.inserted)
	})

	t.Run("chunk offsets tile the content", func(t *testing.T) {
		svc := newService(newFakeStore(), &flakyClient{}, &fakeQueue{})

		content := strings.Repeat("0123456789", 330) // 3300 bytes
		doc, err := svc.CreateText(context.Background(), CreateTextRequest{
			ProjectID: projectID,
			Title:     "tiling",
			Content:   content,
		})
		require.NoError(t, err)
		require.NotEmpty(t, doc.Chunks)

		assert.Equal(t, 0, doc.Chunks[0].Start)
		for i := 1; i < len(doc.Chunks); i++ {
			assert.Equal(t, doc.Chunks[i-1].End, doc.Chunks[i].Start)
		}
		last := doc.Chunks[len(doc.Chunks)-1]
		assert.Equal(t, len(content), last.End)
		assert.Equal(t, content[last.Start:last.End], last.Text)
	})

	t.Run("validation", func(t *testing.T) {
		svc := newService(newFakeStore(), &flakyClient{}, &fakeQueue{})

		_, err := svc.CreateText(context.Background(), CreateTextRequest{ProjectID: projectID, Content: "x"})
		assert.ErrorIs(t, err, ErrInvalidTitle)

		_, err = svc.CreateText(context.Background(), CreateTextRequest{
			ProjectID: projectID, Title: strings.Repeat("t", 201), Content: "x",
		})
		assert.ErrorIs(t, err, ErrInvalidTitle)

		_, err = svc.CreateText(context.Background(), CreateTextRequest{ProjectID: projectID, Title: "ok"})
		assert.ErrorIs(t, err, ErrEmptyContent)
	})
}

func TestCreateFile(t *testing.T) {
	t.Run("garbage bytes are rejected as unreadable", func(t *testing.T) {
		store := newFakeStore()
		svc := newService(store, &flakyClient{}, &fakeQueue{})

		_, err := svc.CreateFile(context.Background(), CreateFileRequest{
			ProjectID: uuid.New(),
			Title:     "not a pdf",
			FileName:  "junk.pdf",
			Data:      []byte("this is not a pdf"),
		})
		assert.ErrorIs(t, err, ErrUnreadableFile)
		assert.Nil(t, store.inserted, "nothing persisted for an unreadable upload")
	})
}

func TestCreateURL(t *testing.T) {
	projectID := uuid.New()

	t.Run("creates pending and enqueues", func(t *testing.T) {
		store := newFakeStore()
		queue := &fakeQueue{}
		svc := newService(store, &flakyClient{}, queue)

		doc, err := svc.CreateURL(context.Background(), CreateURLRequest{
			ProjectID: projectID,
			Title:     "release notes",
			SourceURL: "https://example.com/notes",
		})
		require.NoError(t, err)

		assert.Equal(t, models.DocStatusPending, doc.Status)
		assert.Equal(t, "https://example.com/notes", doc.Metadata.SourceURL)
		assert.Equal(t, []uuid.UUID{doc.ID}, queue.enqueued)
	})

	t.Run("enqueue failure leaves the document pending", func(t *testing.T) {
		store := newFakeStore()
		svc := newService(store, &flakyClient{}, &fakeQueue{err: fmt.Errorf("redis down")})

		doc, err := svc.CreateURL(context.Background(), CreateURLRequest{
			ProjectID: projectID,
			Title:     "notes",
			SourceURL: "https://example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, models.DocStatusPending, doc.Status)
	})

	t.Run("missing url rejected", func(t *testing.T) {
		svc := newService(newFakeStore(), &flakyClient{}, &fakeQueue{})
		_, err := svc.CreateURL(context.Background(), CreateURLRequest{ProjectID: projectID, Title: "x"})
		assert.ErrorIs(t, err, ErrInvalidURL)
	})
}

func TestIngestFetched(t *testing.T) {
	projectID := uuid.New()

	t.Run("completes a pending document", func(t *testing.T) {
		store := newFakeStore()
		queue := &fakeQueue{}
		svc := newService(store, &flakyClient{}, queue)

		doc, err := svc.CreateURL(context.Background(), CreateURLRequest{
			ProjectID: projectID,
			Title:     "fetched",
			SourceURL: "https://example.com",
		})
		require.NoError(t, err)

		err = svc.IngestFetched(context.Background(), projectID, doc.ID, strings.Repeat("w", 2100))
		require.NoError(t, err)

		require.NotNil(t, store.updated)
		assert.Equal(t, models.DocStatusReady, store.updated.Status)
		assert.Len(t, store.updated.Chunks, 3)
	})

	t.Run("empty content marks the document failed", func(t *testing.T) {
		store := newFakeStore()
		svc := newService(store, &flakyClient{}, &fakeQueue{})

		docID := uuid.New()
		err := svc.IngestFetched(context.Background(), projectID, docID, "")
		assert.ErrorIs(t, err, ErrEmptyContent)
		assert.Equal(t, models.DocStatusFailed, store.statuses[docID])
	})
}

func TestStripHTML(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "hello world", "hello world"},
		{"tags removed", "<p>hello <b>world</b></p>", "hello world"},
		{"script body skipped", "<p>before</p><script>var x = 1;</script><p>after</p>", "before after"},
		{"style body skipped", "<style>.a{color:red}</style>text", "text"},
		{"whitespace collapsed", "  a \n\n b  ", "a b"},
		{
			"angle bracket inside quoted attribute",
			`<p><a href="/docs?a=1&gt=2" title="x > y">policy</a> text</p>`,
			"policy text",
		},
		{"self-closing tags", "line<br/>break", "line break"},
		{"entities decoded", "<p>a &amp; b</p>", "a & b"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, stripHTML(tc.in))
		})
	}
}
