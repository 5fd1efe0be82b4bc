package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arzuno-builder-server/pkg/response"
)

// 匿名连接的编辑事件被拒绝，错误码走统一的业务码
func TestHandleMessage_EditorRequiresLogin(t *testing.T) {
	c := NewClient(nil, nil, "frame-1", 0)

	c.handleMessage(&Message{Type: TypeEditorClick})

	select {
	case data := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, TypeError, msg.Type)

		var p ErrorPayload
		require.NoError(t, decodePayload(msg.Payload, &p))
		assert.Equal(t, response.CodeUnauthorized, p.Code)
	default:
		t.Fatal("expected an error message for the anonymous client")
	}
}

// 心跳消息直接回 pong，不经过 Hub
func TestHandleMessage_Heartbeat(t *testing.T) {
	c := NewClient(nil, nil, "frame-1", 0)

	c.handleMessage(&Message{Type: TypeHeartbeat})

	select {
	case data := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, TypePong, msg.Type)
	default:
		t.Fatal("expected a pong message")
	}
}
