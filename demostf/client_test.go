package demostf

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(server.URL, opts...)
	require.NoError(t, err)
	return client
}

func demoObject(id uint32) map[string]any {
	return map[string]any{
		"id":          id,
		"url":         fmt.Sprintf("https://static.demos.tf/%d.dem", id),
		"name":        fmt.Sprintf("match-%d.dem", id),
		"server":      "UGC Highlander Match",
		"duration":    1800,
		"nick":        "Icewind",
		"map":         "cp_gullywash_final1",
		"time":        1612345678,
		"red":         "RED",
		"blue":        "BLU",
		"redScore":    5,
		"blueScore":   3,
		"playerCount": 12,
		"uploader":    1,
		"hash":        "01b2265d875026b91d59a2785abfd50d",
		"backend":     "static",
		"path":        fmt.Sprintf("01/b2/%d.dem", id),
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNew(t *testing.T) {
	t.Run("invalid base url", func(t *testing.T) {
		_, err := New("not a url")
		assert.ErrorIs(t, err, ErrInvalidBaseURL)
	})

	t.Run("sub path preserved", func(t *testing.T) {
		var gotPath string
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			writeJSON(t, w, []any{})
		}))

		// rebuild the client with a sub path, trailing slash omitted
		sub, err := New(client.baseURL.Scheme + "://" + client.baseURL.Host + "/sub")
		require.NoError(t, err)
		sub.httpClient = client.httpClient

		_, err = sub.List(context.Background(), ListParams{}, 1)
		require.NoError(t, err)
		assert.Equal(t, "/sub/demos", gotPath)
	})
}

func TestListPageValidation(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		writeJSON(t, w, []any{})
	}))

	ctx := context.Background()

	for _, page := range []int{0, -1} {
		_, err := client.List(ctx, ListParams{}, page)
		assert.ErrorIs(t, err, ErrInvalidPage, "page %d", page)
	}
	assert.Equal(t, int32(0), requests.Load(), "no request may be issued for invalid pages")

	_, err := client.List(ctx, ListParams{}, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), requests.Load())
}

func TestListQueryEncoding(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/demos", r.URL.Path)
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "ASC", q.Get("order"))
		assert.Equal(t, "cp_process_final", q.Get("map"))
		assert.Equal(t, "76561198024494988,76561197960497430", q.Get("players"))
		assert.Equal(t, "6v6", q.Get("type"))
		assert.Equal(t, "1600000000", q.Get("before"))

		// unset filters stay out of the query string entirely
		for _, key := range []string{"backend", "after", "before_id", "after_id"} {
			_, present := q[key]
			assert.False(t, present, "unexpected query key %q", key)
		}

		writeJSON(t, w, []any{})
	}))

	params := ListParams{}.
		WithOrder(OrderAscending).
		WithMap("cp_process_final").
		WithPlayers(steamid.New(int64(76561198024494988)), steamid.New(int64(76561197960497430))).
		WithType(GameTypeSixes).
		WithBefore(time.Unix(1600000000, 0))

	_, err := client.List(context.Background(), params, 2)
	require.NoError(t, err)
}

func TestListOrderPassThrough(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []any{demoObject(3), demoObject(1), demoObject(2)})
	}))

	demos, err := client.List(context.Background(), ListParams{}, 1)
	require.NoError(t, err)
	require.Len(t, demos, 3)

	// server order is authoritative, no client-side re-sort
	assert.Equal(t, uint32(3), demos[0].ID)
	assert.Equal(t, uint32(1), demos[1].ID)
	assert.Equal(t, uint32(2), demos[2].ID)
}

func TestListUploads(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/uploads/76561198024494988", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		writeJSON(t, w, []any{demoObject(1)})
	}))

	demos, err := client.ListUploads(context.Background(), steamid.New(int64(76561198024494988)), ListParams{}, 1)
	require.NoError(t, err)
	require.Len(t, demos, 1)
	assert.Equal(t, uint32(1), demos[0].ID)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		code     int
		sentinel error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusInternalServerError, nil},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.code), func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				fmt.Fprint(w, "it broke")
			}))

			_, err := client.Get(context.Background(), 9)
			require.Error(t, err)

			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}

			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.code, statusErr.Code)
			assert.Equal(t, "it broke", statusErr.Body)
			assert.Equal(t, "get demo", statusErr.Op)
		})
	}
}

func TestGet(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demos/9", r.URL.Path)

		demo := demoObject(9)
		demo["uploader"] = map[string]any{"id": 1, "steamid": "76561198024494988", "name": "Icewind"}
		demo["players"] = []any{map[string]any{
			"id":      100,
			"user_id": 2,
			"steamid": "76561198010628997",
			"name":    "freak u ___",
			"team":    "red",
			"class":   "demoman",
			"kills":   24,
			"assists": 8,
			"deaths":  17,
		}}
		writeJSON(t, w, demo)
	}))

	demo, err := client.Get(context.Background(), 9)
	require.NoError(t, err)

	assert.Equal(t, uint32(9), demo.ID)
	assert.Equal(t, "match-9.dem", demo.Name)
	assert.Equal(t, "cp_gullywash_final1", demo.Map)
	assert.Equal(t, time.Unix(1612345678, 0).UTC(), demo.Time)
	assert.Equal(t, "01b2265d875026b91d59a2785abfd50d", demo.Hash.String())

	require.NotNil(t, demo.Uploader.User())
	assert.Equal(t, uint32(1), demo.Uploader.ID())
	assert.Equal(t, int64(76561198024494988), demo.Uploader.User().SteamID.Int64())

	require.Len(t, demo.Players, 1)
	player := demo.Players[0]
	assert.Equal(t, uint32(2), player.User.ID)
	assert.Equal(t, "freak u ___", player.User.Name)
	assert.Equal(t, TeamRed, player.Team)
	assert.Equal(t, ClassDemoman, player.Class)
	assert.Equal(t, 24, player.Kills)
}

func TestDecodeTolerance(t *testing.T) {
	t.Run("missing optional fields default", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			demo := demoObject(9)
			delete(demo, "red")
			delete(demo, "blue")
			delete(demo, "hash")
			delete(demo, "uploader")
			writeJSON(t, w, demo)
		}))

		demo, err := client.Get(context.Background(), 9)
		require.NoError(t, err)
		assert.Empty(t, demo.Red)
		assert.Empty(t, demo.Blue)
		assert.True(t, demo.Hash.IsZero())
		assert.Zero(t, demo.Uploader.ID())
	})

	t.Run("missing required field fails decode", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			demo := demoObject(9)
			delete(demo, "id")
			writeJSON(t, w, demo)
		}))

		_, err := client.Get(context.Background(), 9)
		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
	})

	t.Run("type mismatch fails decode", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			demo := demoObject(9)
			demo["id"] = "nine"
			writeJSON(t, w, demo)
		}))

		_, err := client.Get(context.Background(), 9)
		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
	})
}

func TestAccessKeyHeader(t *testing.T) {
	t.Run("attached when configured", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "sekrit", r.Header.Get(accessKeyHeader))
			writeJSON(t, w, []any{})
		}), WithAccessKey("sekrit"))

		_, err := client.List(context.Background(), ListParams{}, 1)
		require.NoError(t, err)
	})

	t.Run("absent otherwise", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get(accessKeyHeader))
			writeJSON(t, w, []any{})
		}))

		_, err := client.List(context.Background(), ListParams{}, 1)
		require.NoError(t, err)
	})
}

// chunkRecorder tracks the largest single read passed through, proving the
// upload never materializes the file in one buffer.
type chunkRecorder struct {
	source  io.Reader
	maxRead int
	reads   int
}

func (c *chunkRecorder) Read(p []byte) (int, error) {
	n, err := c.source.Read(p)
	if n > c.maxRead {
		c.maxRead = n
	}
	c.reads++
	return n, err
}

func TestUpload(t *testing.T) {
	const fileSize = 4 << 20

	var received int64
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		reader, err := r.MultipartReader()
		require.NoError(t, err)

		fields := map[string]string{}
		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)

			if part.FormName() == "demo" {
				n, err := io.Copy(io.Discard, part)
				require.NoError(t, err)
				received = n
				continue
			}
			value, err := io.ReadAll(part)
			require.NoError(t, err)
			fields[part.FormName()] = string(value)
		}

		assert.Equal(t, "RED", fields["red"])
		assert.Equal(t, "BLU", fields["blue"])
		assert.Equal(t, "match.dem", fields["name"])
		assert.Equal(t, "upload-key", fields["key"])

		fmt.Fprint(w, "https://demos.tf/427")
	}), WithAccessKey("upload-key"))

	source := &chunkRecorder{source: bytes.NewReader(bytes.Repeat([]byte{0xde}, fileSize))}
	id, err := client.Upload(context.Background(), &UploadRequest{
		Name: "match.dem",
		Red:  "RED",
		Blue: "BLU",
		Body: source,
	})
	require.NoError(t, err)

	assert.Equal(t, uint32(427), id)
	assert.Equal(t, int64(fileSize), received)
	assert.Greater(t, source.reads, 1)
	assert.LessOrEqual(t, source.maxRead, 256<<10, "body must be read in bounded chunks")
}

func TestUploadInvalidKey(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Invalid key")
	}), WithAccessKey("wrong-key"))

	_, err := client.Upload(context.Background(), &UploadRequest{
		Name: "match.dem",
		Body: bytes.NewReader([]byte("data")),
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUploadMissingKey(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))

	_, err := client.Upload(context.Background(), &UploadRequest{
		Name: "match.dem",
		Body: bytes.NewReader([]byte("data")),
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(0), requests.Load())
}

func TestUploadBodySingleUse(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		fmt.Fprint(w, "https://demos.tf/1")
	}), WithAccessKey("upload-key"))

	upload := &UploadRequest{Name: "match.dem", Body: bytes.NewReader([]byte("data"))}

	_, err := client.Upload(context.Background(), upload)
	require.NoError(t, err)

	_, err = client.Upload(context.Background(), upload)
	assert.ErrorIs(t, err, ErrBodyConsumed)
}

func TestUploadUnexpectedResponse(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "something went sideways")
	}), WithAccessKey("upload-key"))

	_, err := client.Upload(context.Background(), &UploadRequest{
		Name: "match.dem",
		Body: bytes.NewReader([]byte("data")),
	})

	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestSetURL(t *testing.T) {
	var hash Hash
	hash[0] = 0xab

	t.Run("sends form fields", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/demos/1/url", r.URL.Path)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, hash.String(), r.PostForm.Get("hash"))
			assert.Equal(t, "example", r.PostForm.Get("backend"))
			assert.Equal(t, "some/path", r.PostForm.Get("path"))
			assert.Equal(t, "http://example.com/demo", r.PostForm.Get("url"))
			assert.Equal(t, "edit-key", r.PostForm.Get("key"))
		}))

		err := client.SetURL(context.Background(), 1, "example", "some/path", "http://example.com/demo", hash, "edit-key")
		require.NoError(t, err)
	})

	t.Run("maps failure statuses", func(t *testing.T) {
		tests := []struct {
			code     int
			sentinel error
		}{
			{http.StatusNotFound, ErrNotFound},
			{http.StatusPreconditionFailed, ErrHashMismatch},
			{http.StatusUnauthorized, ErrUnauthorized},
		}

		for _, tt := range tests {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			}))

			err := client.SetURL(context.Background(), 1, "example", "p", "u", hash, "edit-key")
			assert.ErrorIs(t, err, tt.sentinel, "status %d", tt.code)
		}
	})
}

func TestGetUser(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/1", r.URL.Path)
		writeJSON(t, w, map[string]any{"id": 1, "steamid": "76561198024494988", "name": "Icewind"})
	}))

	user, err := client.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), user.ID)
	assert.Equal(t, "Icewind", user.Name)
	assert.Equal(t, int64(76561198024494988), user.SteamID.Int64())
}

func TestSearchUsers(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/search", r.URL.Path)
		assert.Equal(t, "freak", r.URL.Query().Get("query"))
		writeJSON(t, w, []any{map[string]any{"id": 2, "steamid": "76561198010628997", "name": "freak u ___"}})
	}))

	users, err := client.SearchUsers(context.Background(), "freak")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "freak u ___", users[0].Name)
}

func TestGetChat(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demos/1/chat", r.URL.Path)
		writeJSON(t, w, []any{
			map[string]any{"user": "distraughtduck4", "time": 0, "message": "[P-REC] Recording..."},
		})
	}))

	chat, err := client.GetChat(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, chat, 1)
	assert.Equal(t, "distraughtduck4", chat[0].User)
	assert.Equal(t, 0, chat[0].Time)
}

func TestUserRefResolve(t *testing.T) {
	var userRequests atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/demos":
			writeJSON(t, w, []any{demoObject(1)})
		case "/users/1":
			userRequests.Add(1)
			writeJSON(t, w, map[string]any{"id": 1, "steamid": "76561198024494988", "name": "Icewind"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	ctx := context.Background()
	demos, err := client.List(ctx, ListParams{}, 1)
	require.NoError(t, err)
	require.Len(t, demos, 1)

	// list responses only carry the uploader id
	assert.Nil(t, demos[0].Uploader.User())

	user, err := demos[0].Uploader.Resolve(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, "Icewind", user.Name)
	assert.Equal(t, int32(1), userRequests.Load())

	// a full reference resolves locally
	full := UserRef{id: 2, user: &User{ID: 2, Name: "local"}}
	resolved, err := full.Resolve(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, "local", resolved.Name)
	assert.Equal(t, int32(1), userRequests.Load())
}

func TestFetchPlayers(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/demos":
			writeJSON(t, w, []any{demoObject(1)})
		case "/demos/1":
			demo := demoObject(1)
			demo["players"] = []any{map[string]any{
				"id": 10, "user_id": 2, "steamid": "76561198010628997", "name": "freak u ___",
				"team": "blue", "class": "medic", "kills": 0, "assists": 12, "deaths": 4,
			}}
			writeJSON(t, w, demo)
		}
	}))

	ctx := context.Background()
	demos, err := client.List(ctx, ListParams{}, 1)
	require.NoError(t, err)
	require.Len(t, demos, 1)
	require.Nil(t, demos[0].Players)

	players, err := demos[0].FetchPlayers(ctx, client)
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, ClassMedic, players[0].Class)
}

func TestSave(t *testing.T) {
	content := bytes.Repeat([]byte("demo data "), 1000)
	sum := md5.Sum(content)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(content)
	}))
	t.Cleanup(server.Close)

	client, err := New(server.URL)
	require.NoError(t, err)

	t.Run("verifies hash", func(t *testing.T) {
		demo := &Demo{ID: 1, URL: server.URL + "/file.dem", Hash: Hash(sum)}

		var buf bytes.Buffer
		require.NoError(t, client.Save(context.Background(), demo, &buf))
		assert.Equal(t, content, buf.Bytes())
	})

	t.Run("rejects mismatched hash", func(t *testing.T) {
		var wrong Hash
		wrong[0] = 0xff
		demo := &Demo{ID: 1, URL: server.URL + "/file.dem", Hash: wrong}

		err := client.Save(context.Background(), demo, io.Discard)
		assert.ErrorIs(t, err, ErrHashMismatch)
	})

	t.Run("skips verification for unset hash", func(t *testing.T) {
		demo := &Demo{ID: 1, URL: server.URL + "/file.dem"}
		assert.NoError(t, client.Save(context.Background(), demo, io.Discard))
	})
}

func TestContextCancellation(t *testing.T) {
	started := make(chan struct{})
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := client.Get(ctx, 1)
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.ErrorIs(t, err, context.Canceled)
}
