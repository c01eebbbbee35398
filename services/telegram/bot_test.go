package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/shopcollagebot/internal/catalog"
	"sjsage522/shopcollagebot/internal/dispatch"
	shoperrors "sjsage522/shopcollagebot/pkg/errors"
	"sjsage522/shopcollagebot/services/publisher"
)

const sentMessage = `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":-100,"type":"channel"}}}`

// fakeBotAPI records the Bot API methods called and their main field
type fakeBotAPI struct {
	mu      sync.Mutex
	methods []string
	fields  []string
}

func (f *fakeBotAPI) handler(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		r.ParseMultipartForm(10 << 20)
	} else {
		r.ParseForm()
	}

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "getMe":
		w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Shop","username":"shopbot"}}`))
		return
	case "sendMediaGroup":
		w.Write([]byte(`{"ok":true,"result":[]}`))
	default:
		w.Write([]byte(sentMessage))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods = append(f.methods, method)
	switch method {
	case "sendDocument":
		f.fields = append(f.fields, r.FormValue("caption"))
	case "sendMediaGroup":
		f.fields = append(f.fields, r.FormValue("media"))
	case "sendMessage":
		f.fields = append(f.fields, r.FormValue("parse_mode")+"|"+r.FormValue("text")+"|"+r.FormValue("reply_to_message_id"))
	}
}

func newTestBot(t *testing.T) (*Bot, *fakeBotAPI) {
	t.Helper()
	api := &fakeBotAPI{}
	server := httptest.NewServer(http.HandlerFunc(api.handler))
	t.Cleanup(server.Close)

	b, err := NewWithEndpoint(server.URL+"/bot%s/%s", "token", "-100", "shop")
	require.NoError(t, err)
	return b, api
}

func TestNewRejectsNonNumericChat(t *testing.T) {
	_, err := NewWithEndpoint("http://127.0.0.1:1/bot%s/%s", "token", "@shop", "shop")
	require.Error(t, err)
	assert.True(t, shoperrors.IsType(err, shoperrors.ErrorTypeConfiguration))
}

func TestPublishSingleFile(t *testing.T) {
	b, api := newTestBot(t)

	err := b.PublishCollage(context.Background(), publisher.Post{
		Caption: "caption",
		Files:   []publisher.File{{Name: catalog.CollageFileName, Data: []byte("png")}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"sendDocument"}, api.methods)
	assert.Equal(t, []string{"caption"}, api.fields)
}

func TestPublishMediaGroup(t *testing.T) {
	b, api := newTestBot(t)

	err := b.PublishCollage(context.Background(), publisher.Post{
		Caption: "caption",
		Files: []publisher.File{
			{Name: catalog.CollageFileName, Data: []byte("png")},
			catalog.Default().PriceListFile(),
		},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"sendMediaGroup"}, api.methods)

	var media []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(api.fields[0]), &media))
	require.Len(t, media, 2)
	assert.Equal(t, "caption", media[0]["caption"])
	assert.NotContains(t, media[1], "caption")
}

func TestPublishPromo(t *testing.T) {
	b, api := newTestBot(t)

	require.NoError(t, b.PublishPromo(context.Background(), catalog.DefaultAnnouncement().Promo))
	require.Equal(t, []string{"sendMessage"}, api.methods)
	assert.True(t, strings.HasPrefix(api.fields[0], "HTML|<b>Jixx&#39;s Market</b>"))
}

func TestFormatPromo(t *testing.T) {
	text := FormatPromo(catalog.DefaultAnnouncement().Promo)

	assert.Equal(t, "<b>Jixx&#39;s Market</b>\n"+
		"Zahlung nur per Paypal oder Krypto-Währung möglich.\n"+
		"\n"+
		"<b>Zahlungsmethoden:</b> 💳 Paypal, 💰 Krypto\n"+
		"<b>Mindestbestellwert:</b> 25 €\n"+
		"\n"+
		"<i>Vielen Dank für deinen Einkauf!</i>", text)

	assert.Equal(t, "<b>a &lt;b&gt;</b>", FormatPromo(publisher.Promo{Title: "a <b>"}))
}

func commandMessage() *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 42,
		Chat:      &tgbotapi.Chat{ID: -100, Type: "supergroup"},
		Text:      "/shop",
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 5}},
	}
}

func TestHandleCommandRunsPass(t *testing.T) {
	b, api := newTestBot(t)

	msg := commandMessage()
	require.True(t, msg.IsCommand())
	require.Equal(t, "shop", msg.Command())

	passes := 0
	b.handleCommand(context.Background(), msg, func(ctx context.Context) error {
		passes++
		return nil
	})

	assert.Equal(t, 1, passes)
	assert.Empty(t, api.methods)
}

func TestHandleCommandRepliesWhenBusy(t *testing.T) {
	b, api := newTestBot(t)

	b.handleCommand(context.Background(), commandMessage(), func(ctx context.Context) error {
		return dispatch.ErrPassInFlight
	})

	require.Equal(t, []string{"sendMessage"}, api.methods)
	assert.Equal(t, "|"+dispatch.BusyNotice+"|42", api.fields[0])
}
