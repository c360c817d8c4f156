package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/dkinzer222/avatarai/internal/app"
	"github.com/dkinzer222/avatarai/internal/avatar"
	"github.com/dkinzer222/avatarai/internal/calibration"
	"github.com/dkinzer222/avatarai/internal/detector"
)

// ErrUnknownMessage is returned for a client message with an unrecognized type.
var ErrUnknownMessage = errors.New("unknown message type")

// maxMessageSize bounds a single client message; video frames arrive as
// base64 JPEG.
const maxMessageSize = 8 << 20

const dataURLPrefix = "data:image/jpeg;base64,"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Client message types.
const (
	msgVideoFrame       = "video_frame"
	msgPoseData         = "pose_data"
	msgStartCalibration = "start_calibration"
	msgResetCalibration = "reset_calibration"
	msgCustomize        = "customize"
)

// inboundMessage is any message sent by the client.
type inboundMessage struct {
	Type          string                 `json:"type"`
	Data          string                 `json:"data,omitempty"`
	Landmarks     []detector.RawLandmark `json:"landmarks,omitempty"`
	Face          []detector.Point3D     `json:"face,omitempty"`
	Expression    string                 `json:"expression,omitempty"`
	Customization *avatar.Update         `json:"customization,omitempty"`
}

type sessionMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type processedFrameMessage struct {
	Type        string                  `json:"type"`
	AvatarFrame string                  `json:"avatar_frame,omitempty"`
	PoseFrame   string                  `json:"pose_frame,omitempty"`
	Instruction calibration.Instruction `json:"instruction"`
	Gesture     *string                 `json:"gesture"`
	Expression  string                  `json:"expression"`
}

type calibrationMessage struct {
	Type        string                  `json:"type"`
	Instruction calibration.Instruction `json:"instruction"`
}

type customizationMessage struct {
	Type          string               `json:"type"`
	Customization avatar.Customization `json:"customization"`
	Errors        []*avatar.FieldError `json:"errors"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// WSHandler runs one tracking session per websocket connection.
type WSHandler struct {
	app      *app.App
	registry *Registry
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(a *app.App, registry *Registry) *WSHandler {
	return &WSHandler{app: a, registry: registry}
}

// ServeHTTP handles WebSocket upgrade requests and then reads client
// messages until the connection closes. Every reply is written from this
// goroutine.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	session := h.app.NewSession()
	h.registry.Open(session.ID)
	defer func() {
		h.registry.Remove(session.ID)
		session.Close()
	}()

	if err := conn.WriteJSON(sessionMessage{Type: "session", ID: session.ID}); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read error: %v", err)
			}
			return
		}

		reply, err := h.handle(session, data)
		if err != nil {
			reply = errorMessage{Type: "error", Message: err.Error()}
		}
		if reply == nil {
			continue
		}
		if err := conn.WriteJSON(reply); err != nil {
			log.Printf("websocket write error: %v", err)
			return
		}
	}
}

// handle processes one client message and returns the reply to send.
// Returned errors are reported to the client; the session keeps running.
func (h *WSHandler) handle(s *app.Session, data []byte) (any, error) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	switch msg.Type {
	case msgVideoFrame:
		return h.handleVideoFrame(s, msg.Data)
	case msgPoseData:
		return h.handlePoseData(s, msg)
	case msgStartCalibration:
		return calibrationMessage{Type: "calibration", Instruction: s.StartCalibration()}, nil
	case msgResetCalibration:
		return calibrationMessage{Type: "calibration", Instruction: s.ResetCalibration()}, nil
	case msgCustomize:
		if msg.Customization == nil {
			return nil, errors.New("customize: missing customization")
		}
		c, errs := s.Customize(*msg.Customization)
		return customizationMessage{
			Type:          "customization",
			Customization: c,
			Errors:        avatar.FieldErrors(errs),
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
}

func (h *WSHandler) handleVideoFrame(s *app.Session, data string) (any, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	out, err := s.ProcessFrame(&img)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	return h.frameMessage(s, out)
}

func (h *WSHandler) handlePoseData(s *app.Session, msg inboundMessage) (any, error) {
	var body *detector.Frame
	if len(msg.Landmarks) > 0 {
		f, err := detector.NewFrame(msg.Landmarks)
		if err != nil {
			return nil, fmt.Errorf("pose data: %w", err)
		}
		body = f
	}

	out := s.ProcessPose(body, detector.FaceLandmarks(msg.Face), msg.Expression)
	defer out.Close()

	return h.frameMessage(s, out)
}

// frameMessage encodes the output images and publishes the avatar frame to
// stream viewers.
func (h *WSHandler) frameMessage(s *app.Session, out *app.Output) (any, error) {
	msg := processedFrameMessage{
		Type:        "processed_frame",
		Instruction: out.Instruction,
		Expression:  out.Expression,
	}
	if out.Gesture != "" {
		g := out.Gesture
		msg.Gesture = &g
	}

	if out.Avatar != nil {
		jpeg, err := encodeJPEG(out.Avatar)
		if err != nil {
			return nil, fmt.Errorf("encode avatar: %w", err)
		}
		h.registry.Publish(s.ID, jpeg)
		msg.AvatarFrame = dataURLPrefix + base64.StdEncoding.EncodeToString(jpeg)
	}
	if out.Pose != nil {
		jpeg, err := encodeJPEG(out.Pose)
		if err != nil {
			return nil, fmt.Errorf("encode pose frame: %w", err)
		}
		msg.PoseFrame = dataURLPrefix + base64.StdEncoding.EncodeToString(jpeg)
	}
	return msg, nil
}

// decodeImage decodes a base64 JPEG, with or without a data URL prefix.
func decodeImage(data string) (gocv.Mat, error) {
	if strings.HasPrefix(data, "data:") {
		if _, payload, ok := strings.Cut(data, ","); ok {
			data = payload
		}
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("decode frame: %w", err)
	}

	img, err := gocv.IMDecode(raw, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("decode frame: %w", err)
	}
	if img.Empty() {
		img.Close()
		return gocv.Mat{}, errors.New("decode frame: not an image")
	}
	return img, nil
}

func encodeJPEG(img *gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *img)
	if err != nil {
		return nil, err
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}
