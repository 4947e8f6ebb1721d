package pages

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedSource_HasDefaults(t *testing.T) {
	for _, name := range []string{PageSubmission, PageTraining, PageReported} {
		body, err := EmbeddedSource{}.Load(context.Background(), name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, body, name)
	}

	_, err := EmbeddedSource{}.Load(context.Background(), "missing.html")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestRender_Submission(t *testing.T) {
	r := NewRenderer(EmbeddedSource{})

	out, err := r.Render(context.Background(), PageSubmission, map[string]any{
		"campaign_id":    int64(3),
		"employee_email": "a@x.com",
		"employee_id":    int64(11),
	})
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, `action="/events/track_submitted"`)
	assert.Contains(t, html, `name="campaign_id" value="3"`)
	assert.Contains(t, html, `name="employee_id" value="11"`)
	assert.Contains(t, html, `value="a@x.com"`)
}

func TestRender_EscapesEmail(t *testing.T) {
	r := NewRenderer(EmbeddedSource{})

	out, err := r.Render(context.Background(), PageTraining, map[string]any{
		"campaign_id": int64(1),
		"email":       `<script>alert(1)</script>@x.com`,
	})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>")
	assert.Contains(t, string(out), "&lt;script&gt;")
}

type countingSource struct {
	loads atomic.Int32
	body  string
}

func (c *countingSource) Load(context.Context, string) ([]byte, error) {
	c.loads.Add(1)
	return []byte(c.body), nil
}

func TestRender_CachesParsedTemplates(t *testing.T) {
	src := &countingSource{body: "hello {{ name }}"}
	r := NewRenderer(src)

	for i := 0; i < 3; i++ {
		out, err := r.Render(context.Background(), "greeting.html", map[string]any{"name": "bob"})
		require.NoError(t, err)
		assert.Equal(t, "hello bob", string(out))
	}
	assert.Equal(t, int32(1), src.loads.Load())
}

func TestRender_ParseError(t *testing.T) {
	r := NewRenderer(&countingSource{body: "{% if x %}never closed"})

	_, err := r.Render(context.Background(), "broken.html", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse template broken.html")
}

func TestDirSource_OverridesEmbedded(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PageReported), []byte("custom thanks"), 0o644))

	r := NewRenderer(Chain{DirSource{Dir: dir}, EmbeddedSource{}})

	out, err := r.Render(context.Background(), PageReported, nil)
	require.NoError(t, err)
	assert.Equal(t, "custom thanks", string(out))

	// Not overridden: falls through to the embedded default.
	out, err = r.Render(context.Background(), PageTraining, map[string]any{"email": "a@x.com", "campaign_id": 1})
	require.NoError(t, err)
	assert.Contains(t, string(out), "phishing simulation")
}

func TestDirSource_IgnoresPathComponents(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reported.html"), []byte("ok"), 0o644))

	body, err := DirSource{Dir: dir}.Load(context.Background(), "../../reported.html")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

type fakeS3 struct {
	objects map[string]string
	err     error
	keys    []string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.keys = append(f.keys, *in.Key)
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3Source_Load(t *testing.T) {
	client := &fakeS3{objects: map[string]string{"pages/phish/submission.html": "from s3"}}
	src := S3Source{Client: client, Bucket: "pages", Prefix: "phish/"}

	body, err := src.Load(context.Background(), PageSubmission)
	require.NoError(t, err)
	assert.Equal(t, "from s3", string(body))
	assert.Equal(t, []string{"phish/submission.html"}, client.keys)
}

func TestS3Source_NoSuchKeyIsNotExist(t *testing.T) {
	src := S3Source{Client: &fakeS3{}, Bucket: "pages"}

	_, err := src.Load(context.Background(), PageTraining)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	r := NewRenderer(Chain{src, EmbeddedSource{}})
	out, err := r.Render(context.Background(), PageReported, nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Thank you for reporting")
}

func TestChain_StopsOnHardError(t *testing.T) {
	boom := errors.New("access denied")
	src := Chain{S3Source{Client: &fakeS3{err: boom}, Bucket: "pages"}, EmbeddedSource{}}

	_, err := src.Load(context.Background(), PageReported)
	assert.ErrorIs(t, err, boom)
}

func TestChain_AllMissing(t *testing.T) {
	_, err := Chain{DirSource{Dir: t.TempDir()}}.Load(context.Background(), "nope.html")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
