package server

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/unilert/unilert/internal/config"
	"github.com/unilert/unilert/internal/database"
	"github.com/unilert/unilert/internal/domains/alert"
	"github.com/unilert/unilert/internal/domains/detection"
	"github.com/unilert/unilert/internal/domains/listener"
	"github.com/unilert/unilert/internal/handlers"
	detectionrepo "github.com/unilert/unilert/internal/repository/detection"
	"github.com/unilert/unilert/pkg/Logger"
	"github.com/unilert/unilert/pkg/io/device"
	wsdevice "github.com/unilert/unilert/pkg/io/device/websocket"
	"github.com/unilert/unilert/pkg/io/stt"
)

// Dependencies bundles everything the routes need. Repo, Publisher, and
// Transcriber are optional; the pipeline degrades without them.
type Dependencies struct {
	Lexicon     *detection.Lexicon
	Engine      *detection.Engine
	History     *detection.History
	Repo        detectionrepo.Repository
	Publisher   *database.DetectionPublisher
	Dispatcher  *alert.Dispatcher
	Transcriber stt.Transcriber
	Logger      *Logger.Logger
	Configs     *config.Settings
}

func NewServerDependencies(
	lexicon *detection.Lexicon,
	engine *detection.Engine,
	history *detection.History,
	repo detectionrepo.Repository,
	publisher *database.DetectionPublisher,
	dispatcher *alert.Dispatcher,
	transcriber stt.Transcriber,
	logger *Logger.Logger,
	configs *config.Settings,
) Dependencies {
	return Dependencies{
		Lexicon:     lexicon,
		Engine:      engine,
		History:     history,
		Repo:        repo,
		Publisher:   publisher,
		Dispatcher:  dispatcher,
		Transcriber: transcriber,
		Logger:      logger,
		Configs:     configs,
	}
}

// micSession is one connected microphone and its capture pipeline.
type micSession struct {
	conn        *websocket.Conn
	source      *wsdevice.Source
	session     *stt.Session
	loop        *listener.Loop
	cancel      context.CancelFunc
	connectedAt time.Time
}

// RoutesManager owns the active microphone session. One mic at a time; a
// device streams audio over the websocket and the capture loop runs server
// side.
type RoutesManager struct {
	deps Dependencies

	mu  sync.Mutex
	mic *micSession
}

func NewRoutesManager(deps Dependencies) *RoutesManager {
	return &RoutesManager{deps: deps}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // dev-only
}

func InitializeRoutes(cfg *config.Settings, r *gin.Engine, dep Dependencies) {
	r.GET("/", func(ctx *gin.Context) { ctx.JSON(200, gin.H{"message": "Server healthy"}) })
	r.GET("/health", func(ctx *gin.Context) { ctx.JSON(200, gin.H{"status": "ok"}) })

	rm := NewRoutesManager(dep)

	// Microphone audio ingest
	r.GET("/ws/audio", rm.handleMicWebSocket)

	detectionHandler := handlers.NewDetectionHandler(dep.History, dep.Repo, dep.Logger)
	phraseHandler := handlers.NewPhraseHandler(dep.Lexicon, dep.Logger)
	trainingHandler := handlers.NewTrainingHandler(dep.Engine, dep.Logger)

	api := r.Group("/api/v1")
	{
		api.GET("/detections", detectionHandler.ListRecent)
		api.GET("/detections/archive", detectionHandler.ListArchived)
		api.GET("/detections/archive/:id", detectionHandler.Get)
		api.DELETE("/detections", detectionHandler.Clear)

		api.GET("/phrases", phraseHandler.List)
		api.POST("/phrases", phraseHandler.Add)
		api.DELETE("/phrases/:phrase", phraseHandler.Remove)

		api.GET("/training/export", trainingHandler.Export)
		api.POST("/training/import", trainingHandler.Import)
		api.GET("/training/stats", trainingHandler.Stats)

		api.GET("/listener/status", rm.listenerStatus)
		api.POST("/listener/start", rm.listenerStart)
		api.POST("/listener/stop", rm.listenerStop)
	}
}

// handleMicWebSocket accepts a microphone stream and runs the capture
// pipeline over it until the client disconnects.
func (rm *RoutesManager) handleMicWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		rm.deps.Logger.Errorf("mic ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	rm.mu.Lock()
	if rm.mic != nil {
		rm.mu.Unlock()
		rm.deps.Logger.Warnf("rejecting second microphone connection")
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "microphone already connected"))
		return
	}
	mic, err := rm.startCapture(conn)
	if err != nil {
		rm.mu.Unlock()
		rm.deps.Logger.Errorf("failed to start capture pipeline: %v", err)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "capture unavailable"))
		return
	}
	rm.mic = mic
	rm.mu.Unlock()

	rm.deps.Logger.Infof("microphone connected")
	defer rm.teardownMic()

	for {
		messageType, msgBytes, err := conn.ReadMessage()
		if err != nil {
			rm.deps.Logger.Infof("microphone disconnected: %v", err)
			return
		}
		switch messageType {
		case websocket.BinaryMessage:
			rm.handleAudioFrame(msgBytes)
		case websocket.TextMessage:
			rm.handleControlMessage(msgBytes)
		}
	}
}

// handleControlMessage handles start/stop commands sent as JSON text frames
// on the microphone socket.
func (rm *RoutesManager) handleControlMessage(msgBytes []byte) {
	var msg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msgBytes, &msg); err != nil {
		rm.deps.Logger.Errorf("invalid control message: %v", err)
		return
	}

	switch msg.Type {
	case "stop":
		rm.mu.Lock()
		mic := rm.mic
		rm.mu.Unlock()
		if mic != nil {
			mic.loop.Stop()
			mic.cancel()
		}
	case "start":
		rm.mu.Lock()
		defer rm.mu.Unlock()
		if rm.mic == nil || rm.mic.loop.State() == listener.StateListening {
			return
		}
		mic, err := rm.startCapture(rm.mic.conn)
		if err != nil {
			rm.deps.Logger.Errorf("failed to restart capture pipeline: %v", err)
			return
		}
		rm.mic = mic
	default:
		rm.deps.Logger.Warnf("unknown control message type %q", msg.Type)
	}
}

// handleAudioFrame decodes one binary frame and feeds the current source.
// Frame layout: sampleRate(4, LE) + channels(2, LE) + reserved(2) + PCM16.
func (rm *RoutesManager) handleAudioFrame(msgBytes []byte) {
	if len(msgBytes) < 8 {
		rm.deps.Logger.Errorf("invalid audio frame size %d", len(msgBytes))
		return
	}

	frame := device.Frame{
		SampleRate: int(int32(binary.LittleEndian.Uint32(msgBytes[0:4]))),
		Channels:   int(int16(binary.LittleEndian.Uint16(msgBytes[4:6]))),
		Data:       msgBytes[8:],
		Timestamp:  time.Now(),
	}

	var source *wsdevice.Source
	rm.mu.Lock()
	if rm.mic != nil {
		source = rm.mic.source
	}
	rm.mu.Unlock()

	if source != nil && !source.Push(frame) {
		rm.deps.Logger.Debugf("dropped audio frame (%d bytes)", len(frame.Data))
	}
}

// startCapture builds a fresh source, recognition session, and capture loop.
// Caller holds rm.mu.
func (rm *RoutesManager) startCapture(conn *websocket.Conn) (*micSession, error) {
	ctx, cancel := context.WithCancel(context.Background())

	source := wsdevice.New(64)
	var session *stt.Session
	if rm.deps.Transcriber != nil {
		voiceCfg := rm.deps.Configs.Voice
		session = stt.NewSession(rm.deps.Transcriber, stt.SessionConfig{
			SegmentTimeout: voiceCfg.SegmentTimeout,
			RestartDelay:   voiceCfg.RestartDelay,
			MaxRestarts:    voiceCfg.MaxRestarts,
		}, rm.deps.Logger)
	}

	loop := listener.New(source, session, rm.deps.Lexicon, rm.deps.Engine,
		rm.deps.Configs.Detection, rm.deps.Logger)
	if err := loop.Start(ctx); err != nil {
		cancel()
		return nil, err
	}

	go rm.consumeDetections(ctx, loop)

	return &micSession{
		conn:        conn,
		source:      source,
		session:     session,
		loop:        loop,
		cancel:      cancel,
		connectedAt: time.Now(),
	}, nil
}

// consumeDetections routes positive verdicts: bounded history, database
// archive, redis fanout, staff alerting. Each sink fails independently.
func (rm *RoutesManager) consumeDetections(ctx context.Context, loop *listener.Loop) {
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-loop.Detections():
			rm.handleDetection(ctx, d)
		}
	}
}

func (rm *RoutesManager) handleDetection(ctx context.Context, d detection.Detection) {
	rm.deps.Logger.Infof("detection %s: category=%s phrase=%q confidence=%.2f",
		d.ID, d.Category, d.DetectedPhrase, d.Confidence)

	rm.deps.History.Add(d)

	if rm.deps.Repo != nil {
		if err := rm.deps.Repo.Create(&d); err != nil {
			rm.deps.Logger.Errorf("failed to archive detection %s: %v", d.ID, err)
		}
	}
	if rm.deps.Publisher != nil {
		if err := rm.deps.Publisher.Publish(d); err != nil {
			rm.deps.Logger.Errorf("failed to publish detection %s: %v", d.ID, err)
		}
	}
	if rm.deps.Dispatcher != nil {
		rm.deps.Dispatcher.Dispatch(ctx, d)
	}
}

// teardownMic stops the active pipeline and frees the mic slot.
func (rm *RoutesManager) teardownMic() {
	rm.mu.Lock()
	mic := rm.mic
	rm.mic = nil
	rm.mu.Unlock()

	if mic == nil {
		return
	}
	mic.loop.Stop()
	mic.cancel()
	rm.deps.Logger.Infof("microphone session ended (connected for %v)", time.Since(mic.connectedAt))
}

func (rm *RoutesManager) listenerStatus(c *gin.Context) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	state := listener.StateIdle
	if rm.mic != nil {
		state = rm.mic.loop.State()
	}
	c.JSON(http.StatusOK, handlers.ListenerStatusResponse{State: state})
}

// listenerStop halts analysis while keeping the microphone connected.
func (rm *RoutesManager) listenerStop(c *gin.Context) {
	rm.mu.Lock()
	mic := rm.mic
	rm.mu.Unlock()

	if mic == nil {
		c.JSON(http.StatusConflict, handlers.ErrorResponse{Error: "No microphone connected"})
		return
	}
	mic.loop.Stop()
	mic.cancel()
	c.JSON(http.StatusOK, handlers.SuccessResponse{Message: "Listener stopped"})
}

// listenerStart resumes analysis on the connected microphone.
func (rm *RoutesManager) listenerStart(c *gin.Context) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.mic == nil {
		c.JSON(http.StatusConflict, handlers.ErrorResponse{Error: "No microphone connected"})
		return
	}
	if rm.mic.loop.State() == listener.StateListening {
		c.JSON(http.StatusConflict, handlers.ErrorResponse{Error: listener.ErrAlreadyListening.Error()})
		return
	}

	// A stopped loop's source and session are spent; rebuild the pipeline on
	// the same connection.
	mic, err := rm.startCapture(rm.mic.conn)
	if err != nil {
		if errors.Is(err, listener.ErrAlreadyListening) {
			c.JSON(http.StatusConflict, handlers.ErrorResponse{Error: err.Error()})
			return
		}
		rm.deps.Logger.Errorf("failed to restart capture pipeline: %v", err)
		c.JSON(http.StatusInternalServerError, handlers.ErrorResponse{Error: "Failed to start listener"})
		return
	}
	rm.mic = mic
	c.JSON(http.StatusOK, handlers.SuccessResponse{Message: "Listener started"})
}
