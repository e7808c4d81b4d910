package devserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/chunk"
	"github.com/papercomputeco/agentchat/pkg/sse"
)

func doRequest(server *Server, method, path, token string, body any, headers ...string) *http.Response {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, path, r)
	Expect(err).NotTo(HaveOccurred())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := server.app.Test(req, -1)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

func decodeJSON(resp *http.Response, out any) {
	defer resp.Body.Close()
	Expect(json.NewDecoder(resp.Body).Decode(out)).To(Succeed())
}

func login(server *Server, email string) agent.Tokens {
	resp := doRequest(server, http.MethodPost, "/api/auth/verify", "", map[string]string{
		"email": email,
		"code":  DefaultCode,
	})
	Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

	var tokens agent.Tokens
	decodeJSON(resp, &tokens)
	return tokens
}

var _ = Describe("Server", func() {
	var server *Server

	BeforeEach(func() {
		server = NewServer(Config{ListenAddr: ":0"}, nil)
	})

	Describe("GET /ping", func() {
		It("returns pong", func() {
			resp := doRequest(server, http.MethodGet, "/ping", "", nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		})
	})

	Describe("auth", func() {
		It("accepts a code request for a valid email", func() {
			resp := doRequest(server, http.MethodPost, "/api/auth/code", "", map[string]string{"email": "ada@example.com"})
			Expect(resp.StatusCode).To(Equal(fiber.StatusNoContent))
		})

		It("rejects a code request for an invalid email", func() {
			resp := doRequest(server, http.MethodPost, "/api/auth/code", "", map[string]string{"email": "nope"})
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("issues tokens for the dev code", func() {
			tokens := login(server, "ada@example.com")
			Expect(tokens.AccessToken).To(HavePrefix("at_"))
			Expect(tokens.RefreshToken).To(HavePrefix("rt_"))
			Expect(tokens.WorkspaceID).NotTo(BeEmpty())
		})

		It("returns the same workspace on every login", func() {
			first := login(server, "ada@example.com")
			second := login(server, "ada@example.com")
			Expect(second.WorkspaceID).To(Equal(first.WorkspaceID))
			Expect(second.AccessToken).NotTo(Equal(first.AccessToken))
		})

		It("rejects a wrong code", func() {
			resp := doRequest(server, http.MethodPost, "/api/auth/verify", "", map[string]string{
				"email": "ada@example.com",
				"code":  "000000",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusUnauthorized))
		})

		It("honours a configured code", func() {
			server = NewServer(Config{Code: "111111"}, nil)
			resp := doRequest(server, http.MethodPost, "/api/auth/verify", "", map[string]string{
				"email": "ada@example.com",
				"code":  "111111",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		})

		It("rotates refresh tokens", func() {
			tokens := login(server, "ada@example.com")

			resp := doRequest(server, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": tokens.RefreshToken})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var rotated agent.Tokens
			decodeJSON(resp, &rotated)
			Expect(rotated.AccessToken).NotTo(Equal(tokens.AccessToken))
			Expect(rotated.RefreshToken).NotTo(Equal(tokens.RefreshToken))

			By("rejecting the spent refresh token")
			resp = doRequest(server, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": tokens.RefreshToken})
			Expect(resp.StatusCode).To(Equal(fiber.StatusUnauthorized))
		})

		It("expires access tokens after the TTL", func() {
			server = NewServer(Config{AccessTTL: time.Minute}, nil)
			now := time.Now()
			server.store.now = func() time.Time { return now }
			tokens := login(server, "ada@example.com")

			resp := doRequest(server, http.MethodGet, "/api/workspaces", tokens.AccessToken, nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			now = now.Add(2 * time.Minute)
			resp = doRequest(server, http.MethodGet, "/api/workspaces", tokens.AccessToken, nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusUnauthorized))
		})
	})

	Describe("workspaces", func() {
		It("lists the account workspace", func() {
			tokens := login(server, "ada@example.com")

			resp := doRequest(server, http.MethodGet, "/api/workspaces", tokens.AccessToken, nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var out struct {
				Workspaces []agent.Workspace `json:"workspaces"`
			}
			decodeJSON(resp, &out)
			Expect(out.Workspaces).To(HaveLen(1))
			Expect(out.Workspaces[0].ID).To(Equal(tokens.WorkspaceID))
			Expect(out.Workspaces[0].Name).To(Equal("ada's workspace"))
		})

		It("requires a bearer token", func() {
			resp := doRequest(server, http.MethodGet, "/api/workspaces", "", nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusUnauthorized))
		})

		It("forbids another account's workspace", func() {
			ada := login(server, "ada@example.com")
			bob := login(server, "bob@example.com")

			resp := doRequest(server, http.MethodGet, "/api/workspaces/"+ada.WorkspaceID+"/chats", bob.AccessToken, nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusForbidden))
		})
	})

	Describe("chats", func() {
		var (
			tokens agent.Tokens
			base   string
		)

		BeforeEach(func() {
			tokens = login(server, "ada@example.com")
			base = "/api/workspaces/" + tokens.WorkspaceID + "/chats"
		})

		createChat := func(title string) agent.Chat {
			resp := doRequest(server, http.MethodPost, base, tokens.AccessToken, map[string]string{"title": title})
			Expect(resp.StatusCode).To(Equal(fiber.StatusCreated))

			var chat agent.Chat
			decodeJSON(resp, &chat)
			return chat
		}

		It("starts with no chats", func() {
			resp := doRequest(server, http.MethodGet, base, tokens.AccessToken, nil)
			var out struct {
				Chats []agent.Chat `json:"chats"`
			}
			decodeJSON(resp, &out)
			Expect(out.Chats).To(BeEmpty())
		})

		It("creates, renames and deletes a chat", func() {
			chat := createChat("  first  ")
			Expect(chat.ID).NotTo(BeEmpty())
			Expect(chat.Title).To(Equal("first"))

			resp := doRequest(server, http.MethodPatch, base+"/"+chat.ID, tokens.AccessToken, map[string]string{"title": "renamed"})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			var renamed agent.Chat
			decodeJSON(resp, &renamed)
			Expect(renamed.Title).To(Equal("renamed"))

			resp = doRequest(server, http.MethodDelete, base+"/"+chat.ID, tokens.AccessToken, nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusNoContent))

			resp = doRequest(server, http.MethodDelete, base+"/"+chat.ID, tokens.AccessToken, nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		})

		It("rejects an empty rename", func() {
			chat := createChat("first")
			resp := doRequest(server, http.MethodPatch, base+"/"+chat.ID, tokens.AccessToken, map[string]string{"title": " "})
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("returns 404 for messages of an unknown chat", func() {
			resp := doRequest(server, http.MethodGet, base+"/missing/messages", tokens.AccessToken, nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		})

		Describe("POST messages/stream", func() {
			var chat agent.Chat

			BeforeEach(func() {
				chat = createChat("")
			})

			It("streams a reply the extractor reassembles", func() {
				resp := doRequest(server, http.MethodPost, base+"/"+chat.ID+"/messages/stream", tokens.AccessToken,
					map[string]string{"content": "hello there"},
					"Accept", "text/event-stream",
				)
				Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))

				reader := sse.NewReader(resp.Body)
				var text strings.Builder
				var modes []chunk.Mode
				for {
					f, err := reader.Next()
					Expect(err).NotTo(HaveOccurred())
					if f == nil {
						break
					}
					sc, ok := chunk.FromFrame(f.Event, f.Data)
					if !ok {
						continue
					}
					modes = append(modes, sc.Mode)
					if sc.Mode == chunk.ModeReplace {
						text.Reset()
					}
					text.WriteString(sc.Text)
				}
				resp.Body.Close()

				Expect(text.String()).To(Equal(EchoReply("hello there")))
				Expect(modes[0]).To(Equal(chunk.ModeAppend))
				Expect(modes[len(modes)-1]).To(Equal(chunk.ModeReplace))
			})

			It("falls back to a JSON message when event streams are not accepted", func() {
				resp := doRequest(server, http.MethodPost, base+"/"+chat.ID+"/messages/stream", tokens.AccessToken,
					map[string]string{"content": "hello"},
					"Accept", "application/json",
				)
				Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()

				b, ok := chunk.Extract(string(body))
				Expect(ok).To(BeTrue())
				Expect(b.Mode).To(Equal(chunk.ModeReplace))
				Expect(b.Text).To(Equal(EchoReply("hello")))
			})

			It("records both sides of the exchange and titles the chat", func() {
				resp := doRequest(server, http.MethodPost, base+"/"+chat.ID+"/messages/stream", tokens.AccessToken,
					map[string]string{"content": "what is a tape?\nmore"},
				)
				Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
				resp.Body.Close()

				resp = doRequest(server, http.MethodGet, base+"/"+chat.ID+"/messages", tokens.AccessToken, nil)
				var out struct {
					Messages []agent.ChatMessage `json:"messages"`
				}
				decodeJSON(resp, &out)
				Expect(out.Messages).To(HaveLen(2))
				Expect(out.Messages[0].Role).To(Equal("user"))
				Expect(out.Messages[1].Role).To(Equal("assistant"))

				resp = doRequest(server, http.MethodGet, base, tokens.AccessToken, nil)
				var chats struct {
					Chats []agent.Chat `json:"chats"`
				}
				decodeJSON(resp, &chats)
				Expect(chats.Chats[0].Title).To(Equal("what is a tape?"))
			})

			It("rejects empty content", func() {
				resp := doRequest(server, http.MethodPost, base+"/"+chat.ID+"/messages/stream", tokens.AccessToken,
					map[string]string{"content": "  "},
				)
				Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			})
		})
	})
})

var _ = Describe("splitWords", func() {
	It("keeps trailing whitespace with each word", func() {
		Expect(splitWords("a bc\n\nd")).To(Equal([]string{"a ", "bc\n\n", "d"}))
	})

	It("reassembles to the input", func() {
		s := "  leading and trailing  "
		Expect(strings.Join(splitWords(s), "")).To(Equal(s))
	})

	It("returns nothing for an empty string", func() {
		Expect(splitWords("")).To(BeEmpty())
	})
})
