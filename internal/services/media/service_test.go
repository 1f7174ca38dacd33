package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

type fakeStorage struct {
	ensured bool
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) EnsureBucket(context.Context) error {
	f.ensured = true
	return nil
}

func (f *fakeStorage) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStorage) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://s3.example/" + key + "?sig=test", nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func TestUploadCertificate(t *testing.T) {
	storage := newFakeStorage()
	svc := NewService(storage)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	payload := []byte("pdf bytes")
	upload, err := svc.Upload(context.Background(), KindCertificate, "alice", "cert.PDF", "application/pdf", bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if !storage.ensured {
		t.Fatalf("bucket was not ensured before the put")
	}
	if !strings.HasPrefix(upload.ObjectKey, "certificates/alice/20260301T120000_") {
		t.Fatalf("object key = %q, want certificates/alice/<stamp>_ prefix", upload.ObjectKey)
	}
	if !strings.HasSuffix(upload.ObjectKey, ".pdf") {
		t.Fatalf("object key = %q, want lowercased .pdf extension", upload.ObjectKey)
	}
	if !bytes.Equal(storage.objects[upload.ObjectKey], payload) {
		t.Fatalf("stored bytes differ from payload")
	}
	if !strings.Contains(upload.URL, upload.ObjectKey) {
		t.Fatalf("presigned url %q does not reference the key", upload.URL)
	}
}

func TestUploadKeysNeverCollide(t *testing.T) {
	svc := NewService(newFakeStorage())

	first, err := svc.Upload(context.Background(), KindAvatar, "alice", "me.png", "image/png", strings.NewReader("a"), 1)
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	second, err := svc.Upload(context.Background(), KindAvatar, "alice", "me.png", "image/png", strings.NewReader("b"), 1)
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if first.ObjectKey == second.ObjectKey {
		t.Fatalf("same key for two uploads: %q", first.ObjectKey)
	}
}

func TestUploadValidation(t *testing.T) {
	svc := NewService(newFakeStorage())
	ctx := context.Background()

	cases := []struct {
		name string
		run  func() error
	}{
		{name: "empty user", run: func() error {
			_, err := svc.Upload(ctx, KindCertificate, " ", "c.pdf", "", strings.NewReader("x"), 1)
			return err
		}},
		{name: "nil body", run: func() error {
			_, err := svc.Upload(ctx, KindCertificate, "alice", "c.pdf", "", nil, 1)
			return err
		}},
		{name: "zero size", run: func() error {
			_, err := svc.Upload(ctx, KindCertificate, "alice", "c.pdf", "", strings.NewReader(""), 0)
			return err
		}},
		{name: "oversized", run: func() error {
			_, err := svc.Upload(ctx, KindCertificate, "alice", "c.pdf", "", strings.NewReader("x"), maxUploadSize+1)
			return err
		}},
		{name: "unknown kind", run: func() error {
			_, err := svc.Upload(ctx, "attachments", "alice", "c.pdf", "", strings.NewReader("x"), 1)
			return err
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.run(); !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}
