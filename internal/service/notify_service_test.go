package service

import (
	"testing"
	"time"

	"campaign-ledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to, subject, body string
}

type chanSender struct {
	sent chan sentMail
}

func (s *chanSender) Send(to, subject, body string) error {
	s.sent <- sentMail{to, subject, body}
	return nil
}

func TestNewNotifyServiceDisabledWithoutRecipient(t *testing.T) {
	assert.Nil(t, NewNotifyService(&chanSender{}, ""))
	assert.Nil(t, NewNotifyService(nil, "ops@example.com"))
}

func TestNotifyServiceSendsAsync(t *testing.T) {
	sender := &chanSender{sent: make(chan sentMail, 1)}
	n := NewNotifyService(sender, "ops@example.com")
	require.NotNil(t, n)

	n.CampaignCancelled(&model.Campaign{ID: 3, Title: "Clean water", Owner: owner, AmountCollected: model.NewAmount(9)})

	select {
	case m := <-sender.sent:
		assert.Equal(t, "ops@example.com", m.to)
		assert.Contains(t, m.subject, "#3")
		assert.Contains(t, m.body, "Clean water")
		assert.Contains(t, m.body, owner.String())
	case <-time.After(2 * time.Second):
		t.Fatal("通知邮件未发送")
	}
}
