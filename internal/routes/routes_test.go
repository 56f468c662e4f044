package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/http/cookiejar"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petlens/internal/config"
	"petlens/internal/dto"
	"petlens/internal/logger"
	"petlens/internal/model"
	"petlens/internal/repository/sqlite"
	"petlens/internal/service"
	"petlens/internal/service/community"
	"petlens/internal/service/vision"
	"petlens/internal/service/websocket"
	"petlens/internal/session"
)

type idleSource struct{}

func (idleSource) Read(ctx context.Context) (vision.Frame, error) {
	<-ctx.Done()
	return vision.Frame{}, ctx.Err()
}
func (idleSource) Resolution() image.Point { return image.Pt(1280, 720) }
func (idleSource) Close() error            { return nil }

// labelClassifier reads each comma-separated word of the image as a label.
var labelClassifier = vision.ClassifierFunc(func(ctx context.Context, img []byte, o vision.Orientation) ([]model.DetectedObject, error) {
	var objects []model.DetectedObject
	for _, label := range strings.Split(string(img), ",") {
		objects = append(objects, model.DetectedObject{Label: label, Confidence: 0.8})
	}
	return objects, nil
})

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.Default()
	cfg.LogDirectory = t.TempDir()
	cfg.StaticDirectory = filepath.Join("..", "..", "static")

	log, err := logger.NewLogger(cfg)
	require.NoError(t, err)

	db, err := sqlite.New(filepath.Join(t.TempDir(), "petlens.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := sqlite.NewBlobStore(db)
	accounts := community.NewAccountService(store, session.NewStore(time.Hour), log)
	posts := community.NewPostService(store, labelClassifier, log)

	manager := service.NewManager(service.ManagerOptions{
		Source:     idleSource{},
		Classifier: labelClassifier,
		Matcher:    vision.NewMatcher(posts, labelClassifier, false, log),
		Display:    image.Pt(360, 640),
	}, log)

	hub := websocket.NewHubService(log)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	router := SetupRoutes(Services{
		Accounts:   accounts,
		Posts:      posts,
		Manager:    manager,
		Hub:        hub,
		Detections: sqlite.NewDetectionRepository(db),
	}, cfg, log)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func postJSON(t *testing.T, client *http.Client, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func multipartRequest(t *testing.T, method, url string, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	for k, v := range files {
		part, err := writer.CreateFormFile(k, k+".jpg")
		require.NoError(t, err)
		_, err = part.Write(v)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(method, url, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func do(t *testing.T, client *http.Client, req *http.Request) *http.Response {
	t.Helper()
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func login(t *testing.T, server *httptest.Server, username string) *http.Client {
	t.Helper()

	client := newClient(t)
	resp := postJSON(t, client, server.URL+"/auth/signup", dto.Credentials{Username: username, Password: "pw", Confirmation: "pw"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, client, server.URL+"/auth/login", dto.Credentials{Username: username, Password: "pw"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return client
}

func TestAuthFlow(t *testing.T) {
	server := setupServer(t)
	client := newClient(t)

	resp := postJSON(t, client, server.URL+"/auth/signup", dto.Credentials{Username: "alice", Password: "pw", Confirmation: "other"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, community.ErrPasswordMismatch.Error(), decode[dto.ErrorResponse](t, resp).Error)

	resp = postJSON(t, client, server.URL+"/auth/signup", dto.Credentials{Username: "alice", Password: "pw", Confirmation: "pw"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, client, server.URL+"/auth/signup", dto.Credentials{Username: "alice", Password: "pw", Confirmation: "pw"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = postJSON(t, client, server.URL+"/auth/login", dto.Credentials{Username: "alice", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, community.ErrInvalidCredentials.Error(), decode[dto.ErrorResponse](t, resp).Error)

	resp = postJSON(t, client, server.URL+"/auth/login", dto.Credentials{Username: "alice", Password: "pw"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", decode[dto.SessionInfo](t, resp).Username)

	sessResp, err := client.Get(server.URL + "/auth/session")
	require.NoError(t, err)
	defer sessResp.Body.Close()
	assert.Equal(t, http.StatusOK, sessResp.StatusCode)

	resp = postJSON(t, client, server.URL+"/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	sessResp, err = client.Get(server.URL + "/auth/session")
	require.NoError(t, err)
	defer sessResp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, sessResp.StatusCode)
}

func TestLoginWithForm(t *testing.T) {
	server := setupServer(t)
	login(t, server, "carol")

	resp, err := http.PostForm(server.URL+"/auth/login", map[string][]string{"username": {"carol"}, "password": {"pw"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPostsRequireSession(t *testing.T) {
	server := setupServer(t)

	req := multipartRequest(t, http.MethodPost, server.URL+"/api/posts", map[string]string{"text": "hi"}, nil)
	resp := do(t, http.DefaultClient, req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, decode[dto.ErrorResponse](t, resp).Error)
}

func TestPostLifecycle(t *testing.T) {
	server := setupServer(t)
	alice := login(t, server, "alice")
	bob := login(t, server, "bob")

	req := multipartRequest(t, http.MethodPost, server.URL+"/api/posts",
		map[string]string{"text": "Rex"}, map[string][]byte{"image": []byte("dog,person")})
	resp := do(t, alice, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[dto.PostInfo](t, resp)
	assert.Equal(t, "alice", created.Author)
	assert.Equal(t, []string{"dog", "person"}, created.Labels)
	assert.Equal(t, "/api/posts/"+created.ID+"/image", created.ImageURL)

	req = multipartRequest(t, http.MethodPost, server.URL+"/api/posts", map[string]string{"text": "text only"}, nil)
	resp = do(t, bob, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	listResp, err := http.Get(server.URL + "/api/posts?limit=1")
	require.NoError(t, err)
	defer listResp.Body.Close()
	page := decode[dto.PostsData](t, listResp)
	assert.Equal(t, 2, page.Length)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, created.ID, page.Posts[0].ID)

	huge, err := http.Get(server.URL + "/api/posts?page=2&limit=9223372036854775807")
	require.NoError(t, err)
	defer huge.Body.Close()
	require.Equal(t, http.StatusOK, huge.StatusCode)
	hugePage := decode[dto.PostsData](t, huge)
	assert.Empty(t, hugePage.Posts)
	assert.Equal(t, 100, hugePage.Limit)

	filtered, err := http.Get(server.URL + "/api/posts?label=dog")
	require.NoError(t, err)
	defer filtered.Body.Close()
	assert.Equal(t, 1, decode[dto.PostsData](t, filtered).Length)

	imgResp, err := http.Get(server.URL + created.ImageURL)
	require.NoError(t, err)
	defer imgResp.Body.Close()
	data, err := io.ReadAll(imgResp.Body)
	require.NoError(t, err)
	assert.Equal(t, "dog,person", string(data))

	req = multipartRequest(t, http.MethodPut, server.URL+"/api/posts/"+created.ID, map[string]string{"text": "hijack"}, nil)
	resp = do(t, bob, req)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req = multipartRequest(t, http.MethodPut, server.URL+"/api/posts/"+created.ID,
		map[string]string{"text": "Rex again"}, map[string][]byte{"image": []byte("cat")})
	resp = do(t, alice, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	edited := decode[dto.PostInfo](t, resp)
	assert.Equal(t, "Rex again", edited.Text)
	assert.Equal(t, []string{"cat"}, edited.Labels)

	req, err = http.NewRequest(http.MethodDelete, server.URL+"/api/posts/"+created.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(t, bob, req).StatusCode)

	req, err = http.NewRequest(http.MethodDelete, server.URL+"/api/posts/"+created.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, do(t, alice, req).StatusCode)

	gone, err := http.Get(server.URL + "/api/posts/" + created.ID)
	require.NoError(t, err)
	defer gone.Body.Close()
	assert.Equal(t, http.StatusNotFound, gone.StatusCode)
}

func TestDetectAndMatch(t *testing.T) {
	server := setupServer(t)
	alice := login(t, server, "alice")

	for _, img := range []string{"cat", "dog,ball"} {
		req := multipartRequest(t, http.MethodPost, server.URL+"/api/posts",
			map[string]string{"text": img}, map[string][]byte{"image": []byte(img)})
		require.Equal(t, http.StatusCreated, do(t, alice, req).StatusCode)
	}

	req := multipartRequest(t, http.MethodPost, server.URL+"/api/detect",
		map[string]string{"orientation": "right"}, map[string][]byte{"image": []byte("dog")})
	resp := do(t, http.DefaultClient, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	analysis := decode[dto.Analysis](t, resp)
	assert.Equal(t, []string{"dog"}, analysis.Labels)
	require.NotNil(t, analysis.Match)
	assert.Equal(t, "dog,ball", analysis.Match.Text)
	assert.InDelta(t, 0.5, analysis.Match.Similarity, 1e-9)

	req = multipartRequest(t, http.MethodPost, server.URL+"/api/detect", map[string]string{"orientation": "sideways"}, map[string][]byte{"image": []byte("dog")})
	assert.Equal(t, http.StatusBadRequest, do(t, http.DefaultClient, req).StatusCode)

	req = multipartRequest(t, http.MethodPost, server.URL+"/api/detect", nil, nil)
	assert.Equal(t, http.StatusBadRequest, do(t, http.DefaultClient, req).StatusCode)

	matchResp, err := http.Get(server.URL + "/api/match")
	require.NoError(t, err)
	defer matchResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, matchResp.StatusCode, "live loop has not run")
}

func TestPet(t *testing.T) {
	server := setupServer(t)
	alice := login(t, server, "alice")

	resp, err := alice.Get(server.URL + "/api/pet")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req := multipartRequest(t, http.MethodPut, server.URL+"/api/pet", map[string]string{"name": "Rex"}, nil)
	assert.Equal(t, http.StatusBadRequest, do(t, alice, req).StatusCode)

	req = multipartRequest(t, http.MethodPut, server.URL+"/api/pet", map[string]string{"name": "Rex"}, map[string][]byte{"photo": []byte("dog")})
	require.Equal(t, http.StatusOK, do(t, alice, req).StatusCode)

	resp, err = http.Get(server.URL + "/api/pet?owner=alice")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pet := decode[dto.PetInfo](t, resp)
	assert.Equal(t, "Rex", pet.Name)
	assert.Equal(t, []string{"dog"}, pet.Labels)

	photo, err := http.Get(server.URL + "/api/pet/photo?owner=alice")
	require.NoError(t, err)
	defer photo.Body.Close()
	data, err := io.ReadAll(photo.Body)
	require.NoError(t, err)
	assert.Equal(t, "dog", string(data))
}

func TestStats(t *testing.T) {
	server := setupServer(t)

	resp, err := http.Get(server.URL + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		History  model.DetectionStats `json:"history"`
		Pipeline service.Stats        `json:"pipeline"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 0, body.History.TotalDetections)
	assert.Equal(t, int64(0), body.Pipeline.Processed)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/stats", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(t, http.DefaultClient, req).StatusCode)

	alice := login(t, server, "alice")
	req, err = http.NewRequest(http.MethodDelete, server.URL+"/api/stats", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, do(t, alice, req).StatusCode)
}

func TestLogs(t *testing.T) {
	server := setupServer(t)

	resp, err := http.Get(server.URL + "/logs/info")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	alice := login(t, server, "alice")

	resp, err = alice.Get(server.URL + "/logs/info")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "alice signed up")

	resp, err = alice.Get(server.URL + "/logs/verbose")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	clearResp, err := alice.Post(server.URL+"/logs/info/clear", "", nil)
	require.NoError(t, err)
	defer clearResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, clearResp.StatusCode)
}

func TestStaticPages(t *testing.T) {
	server := setupServer(t)

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "/api/view")

	asset, err := http.Get(server.URL + "/static/index.html")
	require.NoError(t, err)
	defer asset.Body.Close()
	assert.Equal(t, http.StatusOK, asset.StatusCode)

	missing, err := http.Get(server.URL + "/settings")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}
