package wsio

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/loop"
	"github.com/c360/streamkit/stream"
	"github.com/c360/streamkit/testutil"
)

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func newServer(t *testing.T, lp *loop.Loop, onConn func(*Conn), opts ...Option) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(Handler(lp, &websocket.Upgrader{}, onConn, opts...))
	t.Cleanup(server.Close)
	return server
}

func TestConn_Echo(t *testing.T) {
	lp := testutil.NewLoop(t)
	var serverConn *Conn
	server := newServer(t, lp, func(c *Conn) {
		serverConn = c
		stream.Pipe[[]byte](c, c)
	})

	var got [][]byte
	var gotErr error
	Dial(lp, wsURL(server), nil, func(c *Conn, err error) {
		require.NoError(t, err)
		stream.Concat[[]byte](c, func(items [][]byte, err error) { got, gotErr = items, err })
		for _, msg := range testutil.TestMessages {
			c.Write([][]byte{[]byte(msg)}, nil)
		}
		c.End()
	})
	testutil.RunLoop(t, lp)

	require.NoError(t, gotErr)
	require.Len(t, got, len(testutil.TestMessages))
	for i, msg := range testutil.TestMessages {
		assert.Equal(t, msg, string(got[i]))
	}
	require.NotNil(t, serverConn)
	assert.True(t, serverConn.ReadClosed())
	assert.True(t, serverConn.WriteClosed())
}

func TestConn_TextFrames(t *testing.T) {
	lp := testutil.NewLoop(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{}
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		typ, msg, err := ws.ReadMessage()
		if err != nil {
			return
		}
		_ = ws.WriteMessage(typ, append([]byte("type="), byte('0'+typ)))
		_ = ws.WriteMessage(websocket.TextMessage, msg)
		_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	}))
	t.Cleanup(server.Close)

	var got [][]byte
	Dial(lp, wsURL(server), nil, func(c *Conn, err error) {
		require.NoError(t, err)
		stream.Concat[[]byte](c, func(items [][]byte, _ error) {
			got = items
			c.Close()
		})
		c.Write([][]byte{[]byte("hello")}, nil)
	}, WithTextMessages())
	testutil.RunLoop(t, lp)

	require.Len(t, got, 2)
	assert.Equal(t, "type=1", string(got[0]))
	assert.Equal(t, "hello", string(got[1]))
}

func TestConn_AbnormalClose(t *testing.T) {
	lp := testutil.NewLoop(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{}
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = ws.Close()
	}))
	t.Cleanup(server.Close)

	var gotErr error
	Dial(lp, wsURL(server), nil, func(c *Conn, err error) {
		require.NoError(t, err)
		stream.Concat[[]byte](c, func(_ [][]byte, err error) {
			gotErr = err
			c.Close()
		})
	})
	testutil.RunLoop(t, lp)

	require.Error(t, gotErr)
	assert.True(t, errors.IsTransient(gotErr))
	assert.ErrorIs(t, gotErr, errors.ErrConnectionLost)
}

func TestDial_Refused(t *testing.T) {
	lp := testutil.NewLoop(t)
	server := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(server)
	server.Close()

	var gotErr error
	Dial(lp, url, nil, func(c *Conn, err error) {
		assert.Nil(t, c)
		gotErr = err
	})
	testutil.RunLoop(t, lp)
	require.Error(t, gotErr)
}
