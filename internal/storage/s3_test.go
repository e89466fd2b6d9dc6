package storage_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/frahmantamala/grievance-management/internal/storage"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeObject struct {
	body        []byte
	contentType string
	metadata    map[string]string
}

// fakeS3 keeps objects of a single bucket in memory.
type fakeS3 struct {
	mu         sync.Mutex
	objects    map[string]fakeObject
	putErr     error
	bucketDown bool
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]fakeObject{}}
}

func notFound() error {
	return &smithy.GenericAPIError{Code: "NotFound", Message: "not found"}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = fakeObject{body: data, contentType: aws.ToString(in.ContentType), metadata: in.Metadata}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "no such key"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.body))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, notFound()
	}
	return &s3.HeadObjectOutput{ContentType: aws.String(obj.contentType)}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.bucketDown {
		return nil, &smithy.GenericAPIError{Code: "Forbidden", Message: "denied"}
	}
	return &s3.HeadBucketOutput{}, nil
}

var _ = Describe("S3Store", func() {
	var (
		ctx    context.Context
		client *fakeS3
		store  *storage.S3Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = newFakeS3()
		store = storage.NewS3StoreWithClient(client, "bucket", "/uploads/", 1024)
	})

	It("uploads under the prefix with the sniffed content type", func() {
		obj, err := store.Save(ctx, "scan.png", bytes.NewReader(pngHeader))
		Expect(err).NotTo(HaveOccurred())
		Expect(obj.ContentType).To(Equal("image/png"))

		stored, ok := client.objects["uploads/"+obj.Path]
		Expect(ok).To(BeTrue())
		Expect(stored.body).To(Equal(pngHeader))
		Expect(stored.metadata).To(HaveKeyWithValue("original-filename", "scan.png"))

		mt, err := store.MimeType(ctx, obj.Path)
		Expect(err).NotTo(HaveOccurred())
		Expect(mt).To(Equal("image/png"))
	})

	It("opens stored objects and maps missing keys", func() {
		obj, err := store.Save(ctx, "a.txt", strings.NewReader("hello"))
		Expect(err).NotTo(HaveOccurred())

		rc, err := store.Open(ctx, obj.Path)
		Expect(err).NotTo(HaveOccurred())
		data, _ := io.ReadAll(rc)
		Expect(string(data)).To(Equal("hello"))

		_, err = store.Open(ctx, "grievances/nope.txt")
		Expect(err).To(MatchError(storage.ErrObjectNotFound))
	})

	It("deletes idempotently", func() {
		obj, err := store.Save(ctx, "a.txt", strings.NewReader("hello"))
		Expect(err).NotTo(HaveOccurred())

		deleted, err := store.Delete(ctx, obj.Path)
		Expect(err).NotTo(HaveOccurred())
		Expect(deleted).To(BeTrue())

		deleted, err = store.Delete(ctx, obj.Path)
		Expect(err).NotTo(HaveOccurred())
		Expect(deleted).To(BeFalse())
	})

	It("enforces the size limit before uploading", func() {
		_, err := store.Save(ctx, "big.bin", bytes.NewReader(make([]byte, 2048)))
		Expect(err).To(MatchError(storage.ErrTooLarge))
		Expect(client.objects).To(BeEmpty())
	})

	It("surfaces upload failures", func() {
		client.putErr = errors.New("throttled")
		_, err := store.Save(ctx, "a.txt", strings.NewReader("hello"))
		Expect(err).To(MatchError(ContainSubstring("throttled")))
	})

	It("pings the bucket", func() {
		Expect(store.Ping(ctx)).To(Succeed())
		client.bucketDown = true
		Expect(store.Ping(ctx)).NotTo(Succeed())
	})
})
