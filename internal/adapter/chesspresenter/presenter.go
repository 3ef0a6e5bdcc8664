package chesspresenter

import (
	"strings"

	"github.com/park285/adaptive-chess-bot/pkg/chessdto"
)

// Presenter delivers formatted messages and board images without coupling
// to the command layer.
type Presenter struct {
	sendMessage func(message string) error
	sendImage   func(png []byte) error
}

func NewPresenter(sendMessage func(message string) error, sendImage func(png []byte) error) *Presenter {
	return &Presenter{
		sendMessage: sendMessage,
		sendImage:   sendImage,
	}
}

func (p *Presenter) Message(message string) error {
	if p == nil || p.sendMessage == nil || strings.TrimSpace(message) == "" {
		return nil
	}
	return p.sendMessage(message)
}

// Board sends message, then the rendered board when one is available.
func (p *Presenter) Board(message string, state *chessdto.SessionState, image []byte) error {
	if p == nil {
		return nil
	}
	if err := p.Message(message); err != nil {
		return err
	}
	if state != nil && len(image) > 0 && p.sendImage != nil {
		return p.sendImage(image)
	}
	return nil
}
