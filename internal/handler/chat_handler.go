package handler

import (
	"taskhub-be/internal/dto"
	"taskhub-be/internal/pkg/logger"
	"taskhub-be/internal/pkg/serverutils"
	"taskhub-be/internal/repository/contract"
	"taskhub-be/internal/service"
	internalWS "taskhub-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type ChatHandler struct {
	chat      service.IChatService
	presence  contract.PresenceStore
	gateway   *internalWS.Gateway
	jwtSecret string
	logger    logger.ILogger
}

func NewChatHandler(chat service.IChatService, presence contract.PresenceStore, gateway *internalWS.Gateway, jwtSecret string, log logger.ILogger) *ChatHandler {
	return &ChatHandler{
		chat:      chat,
		presence:  presence,
		gateway:   gateway,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

// ServeWs authenticates the handshake and hands the socket to the gateway.
// The bearer comes from the `token` query param (browser clients) or the
// Authorization header (tooling); a missing or bad token rejects the
// connection before the upgrade completes.
func (h *ChatHandler) ServeWs(c *fiber.Ctx) error {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}

	claims, err := internalWS.VerifyToken(h.jwtSecret, tokenStr)
	if err != nil {
		h.logger.Warn("ChatHandler", "WS handshake rejected", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	if websocket.IsWebSocketUpgrade(c) {
		userID := claims.UserID
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("ChatHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
			h.gateway.HandleConnection(conn, userID)
			h.logger.Info("ChatHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

func (h *ChatHandler) CreateDirectConversation(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req dto.CreateDirectConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return serverutils.BadRequestError("Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	conversation, err := h.chat.CreateDirectConversation(c.UserContext(), userID, req.UserId)
	if err != nil {
		return err
	}
	return c.JSON(serverutils.SuccessResponse("Conversation ready", conversation))
}

func (h *ChatHandler) GetOrCreateTaskConversation(c *fiber.Ctx) error {
	if _, err := currentUserID(c); err != nil {
		return err
	}

	var req dto.CreateTaskConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return serverutils.BadRequestError("Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	conversation, err := h.chat.GetOrCreateTaskConversation(c.UserContext(), req.TaskId, req.Members, req.Title)
	if err != nil {
		return err
	}
	return c.JSON(serverutils.SuccessResponse("Conversation ready", conversation))
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	conversations, err := h.chat.ListConversations(c.UserContext(), userID, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(serverutils.SuccessResponse("Success", conversations))
}

func (h *ChatHandler) GetConversation(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return serverutils.BadRequestError("Invalid conversation ID")
	}

	conversation, err := h.chat.GetConversation(c.UserContext(), conversationID, userID)
	if err != nil {
		return err
	}
	return c.JSON(serverutils.SuccessResponse("Success", conversation))
}

func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return serverutils.BadRequestError("Invalid conversation ID")
	}

	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	messages, err := h.chat.ListMessages(c.UserContext(), conversationID, userID, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(serverutils.SuccessResponse("Success", messages))
}

// SendMessage is the non-socket fallback. The persisted message still fans
// out to the conversation room so socket clients see it live.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return serverutils.BadRequestError("Invalid conversation ID")
	}

	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return serverutils.BadRequestError("Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	message, err := h.chat.SendMessage(c.UserContext(), conversationID, userID, req.Content, req.Type)
	if err != nil {
		return err
	}

	h.gateway.Hub().EmitToRoom("conversation:"+conversationID.String(),
		internalWS.Envelope(internalWS.EventMessageNew, map[string]interface{}{"message": message}))

	return c.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Message sent", message))
}

func (h *ChatHandler) MarkAllAsSeen(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return serverutils.BadRequestError("Invalid conversation ID")
	}

	count, err := h.chat.MarkAllAsSeen(c.UserContext(), conversationID, userID)
	if err != nil {
		return err
	}
	return c.JSON(serverutils.SuccessResponse("All messages marked as seen", fiber.Map{"count": count}))
}

func (h *ChatHandler) GetOnlineUsers(c *fiber.Ctx) error {
	users, err := h.presence.ListOnline(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(serverutils.SuccessResponse("Success", fiber.Map{"online_users": users}))
}

func (h *ChatHandler) GetTypingUsers(c *fiber.Ctx) error {
	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return serverutils.BadRequestError("Invalid conversation ID")
	}

	users, err := h.presence.ListTyping(c.UserContext(), conversationID)
	if err != nil {
		return err
	}
	return c.JSON(serverutils.SuccessResponse("Success", fiber.Map{
		"conversation_id": conversationID,
		"typing_users":    users,
	}))
}

func (h *ChatHandler) RegisterRoutes(router fiber.Router) {
	conversations := router.Group("/conversations")
	conversations.Use(serverutils.JwtMiddleware)
	conversations.Post("/direct", h.CreateDirectConversation)
	conversations.Post("/task", h.GetOrCreateTaskConversation)
	conversations.Get("/", h.ListConversations)
	conversations.Get("/:id", h.GetConversation)
	conversations.Get("/:id/messages", h.ListMessages)
	conversations.Post("/:id/messages", h.SendMessage)
	conversations.Post("/:id/seen", h.MarkAllAsSeen)
	conversations.Get("/:id/typing", h.GetTypingUsers)

	presence := router.Group("/presence")
	presence.Use(serverutils.JwtMiddleware)
	presence.Get("/online", h.GetOnlineUsers)

	// WebSocket handshake does its own token check (query param or header).
	router.Get("/ws", h.ServeWs)
}

// currentUserID reads the identity set by JwtMiddleware.
func currentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		if uid, ok := c.Locals("user_id").(uuid.UUID); ok {
			return uid, nil
		}
		return uuid.Nil, serverutils.UnauthorizedError("Unauthorized")
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, serverutils.UnauthorizedError("Invalid user ID")
	}
	return userID, nil
}
