// Package botkittest поднимает фейковый Bot API телеграма для тестов обработчиков
package botkittest

import (
	"fmt"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

const token = "123456:test-token"

type SentMessage struct {
	ChatID    int64
	Text      string
	ParseMode string
}

type Server struct {
	mu       sync.Mutex
	messages []SentMessage
	admins   []int64
}

// New запускает сервер и возвращает клиент, который ходит в него вместо api.telegram.org
func New(t testing.TB) (*Server, *tgbotapi.BotAPI) {
	t.Helper()

	s := &Server{}

	srv := httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(srv.Close)

	api, err := tgbotapi.NewBotAPIWithClient(token, srv.URL+"/bot%s/%s", srv.Client())
	if err != nil {
		t.Fatalf("create bot api: %v", err)
	}

	return s, api
}

// Пользователи, которых getChatAdministrators вернет администраторами
func (s *Server) SetAdmins(ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.admins = ids
}

func (s *Server) Messages() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SentMessage(nil), s.messages...)
}

// Текст последнего отправленного сообщения или пустая строка
func (s *Server) LastText() string {
	messages := s.Messages()
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].Text
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	switch method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]; method {
	case "getMe":
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Read later","username":"read_later_bot"}}`)
	case "getUpdates":
		fmt.Fprint(w, `{"ok":true,"result":[]}`)
	case "sendMessage":
		chatID, _ := strconv.ParseInt(r.PostForm.Get("chat_id"), 10, 64)

		s.mu.Lock()
		s.messages = append(s.messages, SentMessage{
			ChatID:    chatID,
			Text:      r.PostForm.Get("text"),
			ParseMode: r.PostForm.Get("parse_mode"),
		})
		id := len(s.messages)
		s.mu.Unlock()

		fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d,"date":0,"chat":{"id":%d,"type":"private"}}}`, id, chatID)
	case "getChatAdministrators":
		s.mu.Lock()
		members := make([]string, 0, len(s.admins))
		for _, id := range s.admins {
			members = append(members, fmt.Sprintf(`{"status":"administrator","user":{"id":%d,"is_bot":false,"first_name":"admin"}}`, id))
		}
		s.mu.Unlock()

		fmt.Fprintf(w, `{"ok":true,"result":[%s]}`, strings.Join(members, ","))
	default:
		fmt.Fprintf(w, `{"ok":false,"error_code":404,"description":"method %s is not supported"}`, method)
	}
}

// Апдейт с командой, например "/read 42"
func CommandUpdate(chatID, userID int64, text string) tgbotapi.Update {
	update := TextUpdate(chatID, userID, text)

	command, _, _ := strings.Cut(text, " ")
	update.Message.Entities = []tgbotapi.MessageEntity{
		{Type: "bot_command", Offset: 0, Length: len(command)},
	}

	return update
}

// Апдейт с обычным сообщением без команды
func TextUpdate(chatID, userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 1,
			From:      &tgbotapi.User{ID: userID, FirstName: "reader"},
			Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
			Text:      text,
		},
	}
}
