package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"

	"github.com/hyperifyio/jobextract/internal/posting"
)

func sampleRecord() posting.JobPosting {
	p := posting.JobPosting{
		ID:               "01HZX3J8Q1K2M3N4P5Q6R7S8T9",
		Title:            "Développeur Go",
		Company:          "Acme",
		Location:         "Lyon",
		ContractType:     "CDI",
		Skills:           []string{"Go", "PostgreSQL"},
		Responsibilities: []string{"Concevoir des API"},
		URL:              "https://jobs.example/42",
		AnalyzedAt:       time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		Source:           posting.SourceStructural,
	}
	p.Normalize()
	return p
}

func TestFileSink_WritesRecord(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "out")
	s := &FileSink{Dir: dir, StrictPerms: true}
	rec := sampleRecord()
	if err := s.Persist(context.Background(), rec); err != nil {
		t.Fatalf("persist: %v", err)
	}
	path := filepath.Join(dir, "job-analysis-html-"+rec.ID+".json")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got posting.JobPosting
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", got, rec)
	}
	info, _ := os.Stat(dir)
	if info.Mode()&0o777 != 0o700 {
		t.Fatalf("dir mode = %o, want 0700", info.Mode()&0o777)
	}
	finfo, _ := os.Stat(path)
	if finfo.Mode()&0o777 != 0o600 {
		t.Fatalf("file mode = %o, want 0600", finfo.Mode()&0o777)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestFileRawArchive_AndPurge(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	a := &FileRawArchive{Dir: dir}
	if err := a.SaveRaw(context.Background(), "https://jobs.example/1", "mistral", "pas du JSON"); err != nil {
		t.Fatalf("save raw: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "job-analysis-raw-*.txt"))
	if len(matches) != 1 {
		t.Fatalf("expected one raw file, got %v", matches)
	}
	b, _ := os.ReadFile(matches[0])
	if string(b) != "pas du JSON" {
		t.Fatalf("raw text altered: %q", b)
	}

	keep := filepath.Join(dir, "notes.txt")
	_ = os.WriteFile(keep, []byte("x"), 0o644)
	old := time.Now().Add(-48 * time.Hour)
	_ = os.Chtimes(matches[0], old, old)
	_ = os.Chtimes(keep, old, old)
	n, err := PurgeByAge(dir, 24*time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("purge removed %d (%v), want 1", n, err)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("unrelated file removed")
	}
}

func TestSQLiteSink_LatestByURL(t *testing.T) {
	t.Parallel()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "jobs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	first := sampleRecord()
	second := sampleRecord()
	second.ID = "01HZX3J8Q1K2M3N4P5Q6R7S8TA"
	second.Title = "Développeur Go senior"
	second.AnalyzedAt = first.AnalyzedAt.Add(time.Hour)
	for _, r := range []posting.JobPosting{first, second} {
		if err := s.Persist(ctx, r); err != nil {
			t.Fatalf("persist: %v", err)
		}
	}
	got, ok, err := s.Latest(ctx, first.URL)
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, second) {
		t.Fatalf("latest mismatch:\n%+v\n%+v", got, second)
	}
	if _, ok, _ := s.Latest(ctx, "https://jobs.example/none"); ok {
		t.Fatalf("unexpected record for unknown url")
	}
	noID := sampleRecord()
	noID.ID = ""
	if err := s.Persist(ctx, noID); err == nil {
		t.Fatalf("expected error for record without id")
	}
}

type fakeS3 struct {
	mu   sync.Mutex
	keys []string
	meta []map[string]string
	body []string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, _ := io.ReadAll(in.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, *in.Key)
	f.meta = append(f.meta, in.Metadata)
	f.body = append(f.body, string(b))
	return &s3.PutObjectOutput{}, nil
}

func TestS3SinkAndArchive_Keys(t *testing.T) {
	t.Parallel()
	c := &fakeS3{}
	rec := sampleRecord()
	rec.Source = posting.SourcePrompt
	if err := (&S3Sink{Client: c, Bucket: "b", Prefix: "jobs"}).Persist(context.Background(), rec); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if err := (&S3RawArchive{Client: c, Bucket: "b", Prefix: "jobs"}).SaveRaw(context.Background(), rec.URL, "llama3", "raw"); err != nil {
		t.Fatalf("save raw: %v", err)
	}
	if c.keys[0] != "jobs/postings/job-analysis-llm-"+rec.ID+".json" {
		t.Fatalf("unexpected record key %q", c.keys[0])
	}
	if !strings.HasPrefix(c.keys[1], "jobs/raw/job-analysis-raw-") || c.meta[1]["model"] != "llama3" || c.body[1] != "raw" {
		t.Fatalf("unexpected raw upload: %q %v", c.keys[1], c.meta[1])
	}
}

type fakePublisher struct {
	subject string
	data    []byte
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.subject, f.data = subject, data
	return nil
}

func TestNATSSink_PublishesJSON(t *testing.T) {
	t.Parallel()
	pub := &fakePublisher{}
	rec := sampleRecord()
	if err := (&NATSSink{Pub: pub}).Persist(context.Background(), rec); err != nil {
		t.Fatalf("persist: %v", err)
	}
	var got posting.JobPosting
	if pub.subject != DefaultSubject || json.Unmarshal(pub.data, &got) != nil || got.ID != rec.ID {
		t.Fatalf("unexpected publish %q %s", pub.subject, pub.data)
	}
}

type fakeRedis struct {
	key string
	val []byte
	ttl time.Duration
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, exp time.Duration) *redis.StatusCmd {
	f.key, f.ttl = key, exp
	f.val, _ = value.([]byte)
	return redis.NewStatusResult("OK", nil)
}

func TestRedisSink_KeyedByURL(t *testing.T) {
	t.Parallel()
	r := &fakeRedis{}
	rec := sampleRecord()
	if err := (&RedisSink{Client: r, TTL: time.Hour}).Persist(context.Background(), rec); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if r.key != RedisKey(rec.URL) || r.ttl != time.Hour || !strings.Contains(string(r.val), `"contractType":"CDI"`) {
		t.Fatalf("unexpected set %q %v %s", r.key, r.ttl, r.val)
	}
	if RedisKey(rec.URL) != RedisKey(rec.URL) || RedisKey(rec.URL) == RedisKey(rec.URL+"?x") {
		t.Fatalf("redis key not stable per url")
	}
}

type failingSink struct{ calls int }

func (f *failingSink) Name() string { return "failing" }
func (f *failingSink) Persist(context.Context, posting.JobPosting) error {
	f.calls++
	return errors.New("disk full")
}

func TestMultiAndLogged(t *testing.T) {
	t.Parallel()
	bad := &failingSink{}
	pub := &fakePublisher{}
	m := Multi{bad, &NATSSink{Pub: pub}}
	err := m.Persist(context.Background(), sampleRecord())
	if err == nil || !strings.Contains(err.Error(), "failing: disk full") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if pub.data == nil {
		t.Fatalf("later sinks must still run")
	}
	if err := Logged(m).Persist(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("logged sink must swallow errors: %v", err)
	}
	if bad.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", bad.calls)
	}
}
