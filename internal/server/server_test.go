package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/entity"
	"github.com/joseph-ayodele/docintake/internal/pipeline"
	"github.com/joseph-ayodele/docintake/internal/repository"
)

// fakeUploader stores "<name>: <content>" for .xml uploads, warns on .doc,
// fails on everything else.
type fakeUploader struct {
	repo     repository.DocumentRepository
	lastOpts pipeline.Options
}

func (f *fakeUploader) ProcessUpload(ctx context.Context, name string, data []byte, opts pipeline.Options) []pipeline.Outcome {
	f.lastOpts = opts
	switch filepath.Ext(name) {
	case ".xml":
		doc, _ := entity.NewDocument(name)
		_ = doc.SetContent(string(data))
		if _, err := f.repo.Insert(ctx, doc); err != nil {
			return []pipeline.Outcome{{FileName: name, Status: constants.OutcomeFailed, Err: err}}
		}
		return []pipeline.Outcome{{FileName: name, Document: doc, Status: constants.OutcomeOK}}
	case ".zip":
		return []pipeline.Outcome{
			{FileName: "a.doc", Status: constants.OutcomeWarning, Err: common.NotSupported("legacy")},
			{FileName: "b.txt", Status: constants.OutcomeFailed, Err: common.UnknownFormat("txt")},
		}
	case ".doc":
		return []pipeline.Outcome{{FileName: name, Status: constants.OutcomeWarning, Err: common.NotSupported("legacy")}}
	default:
		return []pipeline.Outcome{{FileName: name, Status: constants.OutcomeFailed, Err: common.UnknownFormat(constants.ExtOf(name))}}
	}
}

type fakeExporter struct{ filter repository.ListFilter }

func (f *fakeExporter) ExportDocumentsXLSX(_ context.Context, filter repository.ListFilter) ([]byte, error) {
	f.filter = filter
	return []byte("xlsx"), nil
}

func newRepo(t *testing.T) repository.DocumentRepository {
	t.Helper()
	db, err := repository.Open(context.Background(), repository.Config{DSN: "file:" + filepath.Join(t.TempDir(), "s.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return repository.NewDocumentRepository(db, nil)
}

func upload(t *testing.T, h http.Handler, url, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func newTestRouter(t *testing.T) (http.Handler, *fakeUploader, *fakeExporter) {
	repo := newRepo(t)
	up := &fakeUploader{repo: repo}
	exp := &fakeExporter{}
	h := NewDocumentHandler(up, repo, exp, HandlerConfig{Enrich: true, MaxUploadBytes: 1 << 20}, nil)
	return NewRouter(h, nil), up, exp
}

func TestHTTP_Health(t *testing.T) {
	r, _, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHTTP_UploadListGet(t *testing.T) {
	r, up, _ := newTestRouter(t)

	rec := upload(t, r, "/api/v1/documents?enrich=false", "a.xml", "hello")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.False(t, up.lastOpts.Enrich)

	var resp struct {
		Outcomes []struct {
			FileName string `json:"file_name"`
			Status   string `json:"status"`
			Document struct {
				ID               int64  `json:"id"`
				ExtractedContent string `json:"extracted_content"`
			} `json:"document"`
		} `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Outcomes, 1)
	assert.Equal(t, "OK", resp.Outcomes[0].Status)
	assert.Equal(t, "hello", resp.Outcomes[0].Document.ExtractedContent)
	id := resp.Outcomes[0].Document.ID
	require.Positive(t, id)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents?limit=10&type=unclassified", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Documents []map[string]any `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Documents, 1)
	assert.Equal(t, "a.xml", list.Documents[0]["file_name"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTP_UploadErrors(t *testing.T) {
	r, up, _ := newTestRouter(t)

	rec := upload(t, r, "/api/v1/documents", "notes.txt", "x")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNKNOWN_FORMAT")
	assert.True(t, up.lastOpts.Enrich)

	rec = upload(t, r, "/api/v1/documents", "old.doc", "x")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = upload(t, r, "/api/v1/documents", "empty.xml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload(t, r, "/api/v1/documents?enrich=maybe", "a.xml", "x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload(t, r, "/api/v1/documents", "bundle.zip", "zip")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"WARNING"`)
	assert.Contains(t, rec.Body.String(), `"FAILED"`)
}

func TestHTTP_Export(t *testing.T) {
	r, _, exp := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/export.xlsx?type=CNH", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "xlsx", rec.Body.String())
	assert.Equal(t, "CNH", exp.filter.DocumentType)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func dialBuf(t *testing.T, srv *grpc.Server) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestGRPC_ProcessAndList(t *testing.T) {
	repo := newRepo(t)
	up := &fakeUploader{repo: repo}
	conn := dialBuf(t, NewGRPCServer(NewDocumentsServer(up, repo, true, nil), nil))
	client := NewDocumentsClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := structpb.NewStruct(map[string]any{
		"file_name":      "a.xml",
		"content_base64": base64.StdEncoding.EncodeToString([]byte("olá")),
		"enrich":         false,
	})
	require.NoError(t, err)
	resp, err := client.Process(ctx, req)
	require.NoError(t, err)
	assert.False(t, up.lastOpts.Enrich)

	docs := resp.GetFields()["documents"].GetListValue().GetValues()
	require.Len(t, docs, 1)
	doc := docs[0].GetStructValue().GetFields()
	assert.Equal(t, "olá", doc["extracted_content"].GetStringValue())
	assert.Equal(t, float64(1), doc["id"].GetNumberValue())
	outs := resp.GetFields()["outcomes"].GetListValue().GetValues()
	require.Len(t, outs, 1)
	assert.Equal(t, "OK", outs[0].GetStructValue().GetFields()["status"].GetStringValue())

	listReq, err := structpb.NewStruct(map[string]any{"limit": 5})
	require.NoError(t, err)
	list, err := client.List(ctx, listReq)
	require.NoError(t, err)
	assert.Len(t, list.GetFields()["documents"].GetListValue().GetValues(), 1)
}

func TestGRPC_ProcessErrors(t *testing.T) {
	repo := newRepo(t)
	conn := dialBuf(t, NewGRPCServer(NewDocumentsServer(&fakeUploader{repo: repo}, repo, true, nil), nil))
	client := NewDocumentsClient(conn)
	ctx := context.Background()

	_, err := client.Process(ctx, &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	req, _ := structpb.NewStruct(map[string]any{"file_name": "x.txt", "content_base64": "!!"})
	_, err = client.Process(ctx, req)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	req, _ = structpb.NewStruct(map[string]any{"file_name": "../etc/a.xml", "content_base64": base64.StdEncoding.EncodeToString([]byte("<a/>"))})
	_, err = client.Process(ctx, req)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	req, _ = structpb.NewStruct(map[string]any{"file_name": "x.txt", "content_base64": base64.StdEncoding.EncodeToString([]byte("x"))})
	_, err = client.Process(ctx, req)
	assert.Equal(t, codes.Unimplemented, status.Code(err))

	listReq, _ := structpb.NewStruct(map[string]any{"limit": -3})
	_, err = client.List(ctx, listReq)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPC_Health(t *testing.T) {
	repo := newRepo(t)
	conn := dialBuf(t, NewGRPCServer(NewDocumentsServer(&fakeUploader{repo: repo}, repo, true, nil), nil))
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: DocumentsServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
