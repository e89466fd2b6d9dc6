package storage_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/frahmantamala/grievance-management/internal"
	"github.com/frahmantamala/grievance-management/internal/storage"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

var _ = Describe("LocalStore", func() {
	var (
		ctx   context.Context
		dir   string
		store *storage.LocalStore
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		store, err = storage.NewLocalStore(dir, 1024)
		Expect(err).NotTo(HaveOccurred())
	})

	It("saves under a fresh key and reads the bytes back", func() {
		obj, err := store.Save(ctx, "../../etc/Receipt.PNG", bytes.NewReader(pngHeader))
		Expect(err).NotTo(HaveOccurred())
		Expect(obj.Path).To(HavePrefix(storage.KeyPrefix + "/"))
		Expect(obj.Path).To(HaveSuffix(".png"))
		Expect(obj.Name).To(Equal("Receipt.PNG"))
		Expect(obj.Size).To(Equal(int64(len(pngHeader))))
		Expect(obj.ContentType).To(Equal("image/png"))

		rc, err := store.Open(ctx, obj.Path)
		Expect(err).NotTo(HaveOccurred())
		defer rc.Close()
		data, err := io.ReadAll(rc)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal(pngHeader))

		Expect(filepath.Join(dir, filepath.FromSlash(obj.Path))).To(BeARegularFile())
	})

	It("never reuses a key for the same name", func() {
		a, err := store.Save(ctx, "note.txt", strings.NewReader("one"))
		Expect(err).NotTo(HaveOccurred())
		b, err := store.Save(ctx, "note.txt", strings.NewReader("two"))
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Path).NotTo(Equal(b.Path))
	})

	It("rejects uploads over the limit and leaves nothing behind", func() {
		_, err := store.Save(ctx, "big.bin", bytes.NewReader(make([]byte, 4096)))
		Expect(err).To(MatchError(storage.ErrTooLarge))

		entries, err := os.ReadDir(filepath.Join(dir, storage.KeyPrefix))
		if err == nil {
			Expect(entries).To(BeEmpty())
		}
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

		_, err = store.Open(ctx, obj.Path)
		Expect(err).To(MatchError(storage.ErrObjectNotFound))
	})

	It("detects the mime type of stored files", func() {
		obj, err := store.Save(ctx, "plain", strings.NewReader("just text"))
		Expect(err).NotTo(HaveOccurred())

		mt, err := store.MimeType(ctx, obj.Path)
		Expect(err).NotTo(HaveOccurred())
		Expect(mt).To(HavePrefix("text/plain"))

		_, err = store.MimeType(ctx, "grievances/missing.txt")
		Expect(err).To(MatchError(storage.ErrObjectNotFound))
	})

	It("refuses keys escaping the base directory", func() {
		_, err := store.Open(ctx, "../secret")
		Expect(err).To(MatchError(storage.ErrInvalidKey))
		_, err = store.Delete(ctx, "/etc/passwd")
		Expect(err).To(MatchError(storage.ErrInvalidKey))
	})

	It("pings while the directory exists", func() {
		Expect(store.Ping(ctx)).To(Succeed())
		Expect(os.RemoveAll(dir)).To(Succeed())
		Expect(store.Ping(ctx)).NotTo(Succeed())
	})

	It("honours a cancelled context", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := store.Save(cctx, "a.txt", strings.NewReader("x"))
		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("SanitizeFilename", func() {
	DescribeTable("strips directories and unsafe characters",
		func(in, want string) {
			Expect(storage.SanitizeFilename(in)).To(Equal(want))
		},
		Entry("plain", "report.pdf", "report.pdf"),
		Entry("unix traversal", "../../etc/passwd", "passwd"),
		Entry("windows path", `C:\Users\me\scan.jpg`, "scan.jpg"),
		Entry("quotes", `a"b.txt`, "a_b.txt"),
		Entry("control chars", "a\nb.txt", "a_b.txt"),
	)
})

var _ = Describe("New", func() {
	It("builds a local store by default", func() {
		store, err := storage.New(context.Background(), internal.StorageConfig{LocalDir: GinkgoT().TempDir()})
		Expect(err).NotTo(HaveOccurred())
		Expect(store).To(BeAssignableToTypeOf(&storage.LocalStore{}))
	})

	It("rejects unknown drivers", func() {
		_, err := storage.New(context.Background(), internal.StorageConfig{Driver: "ftp"})
		Expect(err).To(HaveOccurred())
	})
})
