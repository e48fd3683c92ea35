package service

import (
	"crypto/tls"
	"fmt"
	"time"

	"campaign-ledger/internal/model"
	"campaign-ledger/internal/util"

	"go.uber.org/zap"
	"gopkg.in/mail.v2"
)

// Notifier 账本事件通知，实现不得阻塞也不得影响账本结果
type Notifier interface {
	CampaignWithdrawn(campaign *model.Campaign, amount model.Amount)
	CampaignCancelled(campaign *model.Campaign)
	CampaignExpired(campaign *model.Campaign)
	TransferFailed(payout model.Payout, err error)
}

type nopNotifier struct{}

func (nopNotifier) CampaignWithdrawn(*model.Campaign, model.Amount) {}
func (nopNotifier) CampaignCancelled(*model.Campaign)               {}
func (nopNotifier) CampaignExpired(*model.Campaign)                 {}
func (nopNotifier) TransferFailed(model.Payout, error)              {}

// MailSender 发送一封邮件
type MailSender interface {
	Send(to, subject, body string) error
}

// SMTPSender 基于 gopkg.in/mail.v2 的 SMTP 发送
type SMTPSender struct {
	smtpHost string
	smtpPort int
	username string
	password string
}

func NewSMTPSender(host string, port int, username, password string) *SMTPSender {
	return &SMTPSender{
		smtpHost: host,
		smtpPort: port,
		username: username,
		password: password,
	}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.username)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := mail.NewDialer(s.smtpHost, s.smtpPort, s.username, s.password)
	d.Timeout = 20 * time.Second
	d.TLSConfig = &tls.Config{ServerName: s.smtpHost}
	if s.smtpPort == 465 {
		d.SSL = true
	}

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}
	return nil
}

// NotifyService 向运营邮箱发送账本事件
type NotifyService struct {
	sender MailSender
	to     string
}

// NewNotifyService to 为空时返回 nil，调用方应退回到空实现
func NewNotifyService(sender MailSender, to string) *NotifyService {
	if to == "" || sender == nil {
		return nil
	}
	return &NotifyService{sender: sender, to: to}
}

func (s *NotifyService) CampaignWithdrawn(campaign *model.Campaign, amount model.Amount) {
	s.sendAsync(
		fmt.Sprintf("[账本] 活动 #%d 资金已提取", campaign.ID),
		fmt.Sprintf("活动：%s\n发起人：%s\n提取金额：%s\n", campaign.Title, campaign.Owner, amount))
}

func (s *NotifyService) CampaignCancelled(campaign *model.Campaign) {
	s.sendAsync(
		fmt.Sprintf("[账本] 活动 #%d 已取消", campaign.ID),
		fmt.Sprintf("活动：%s\n发起人：%s\n已筹集：%s\n捐款人现在可以申请退款。\n",
			campaign.Title, campaign.Owner, campaign.AmountCollected))
}

func (s *NotifyService) CampaignExpired(campaign *model.Campaign) {
	s.sendAsync(
		fmt.Sprintf("[账本] 活动 #%d 已过期未达标", campaign.ID),
		fmt.Sprintf("活动：%s\n目标：%s\n已筹集：%s\n截止时间：%s\n",
			campaign.Title, campaign.Target, campaign.AmountCollected,
			time.Unix(campaign.Deadline, 0).UTC().Format(time.RFC3339)))
}

func (s *NotifyService) TransferFailed(payout model.Payout, err error) {
	s.sendAsync(
		fmt.Sprintf("[账本] 出账失败 %s", payout.Key),
		fmt.Sprintf("收款人：%s\n金额：%s\n错误：%v\n状态未提交，调用方可重试。\n", payout.Recipient, payout.Amount, err))
}

func (s *NotifyService) sendAsync(subject, body string) {
	go func() {
		if err := s.sender.Send(s.to, subject, body); err != nil {
			util.Logger.Error("异步发送邮件失败", zap.Error(err), zap.String("to", s.to))
			return
		}
		util.Logger.Info("通知邮件已发送", zap.String("subject", subject))
	}()
}
