package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const smsAeroURL = "https://gate.smsaero.ru/v2/sms/send"

// SMSSender: всё, что умеет доставить SMS.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, text string) error
}

// SMSAeroClient: клиент шлюза SMS Aero (basic auth email:apiKey).
type SMSAeroClient struct {
	Email   string
	APIKey  string
	Sign    string // подпись отправителя
	DryRun  bool   // dry-run режим
	BaseURL string

	HTTP   *http.Client
	Logger *zap.Logger
}

type smsAeroResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func NewSMSAeroClient(email, apiKey, sign string, dryRun bool, logger *zap.Logger) *SMSAeroClient {
	if sign == "" {
		sign = "ShopEMX"
	}
	if logger == nil {
		logger = zap.L()
	}
	return &SMSAeroClient{
		Email:   email,
		APIKey:  apiKey,
		Sign:    sign,
		DryRun:  dryRun,
		BaseURL: smsAeroURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		Logger:  logger,
	}
}

// SendSMS: отправка SMS через SMS Aero (или имитация в dry-run)
func (c *SMSAeroClient) SendSMS(ctx context.Context, phone, text string) error {
	number := DigitsOnly(phone)

	// DRY-RUN: не делаем HTTP-запрос
	if c.DryRun || c.APIKey == "" || c.APIKey == "dry-run" {
		c.Logger.Info("[sms][dry-run]", zap.String("to", number), zap.String("sign", c.Sign), zap.String("text", text))
		return nil
	}
	if c.Email == "" {
		return fmt.Errorf("sms aero credentials not configured")
	}

	q := url.Values{
		"number": {number},
		"text":   {text},
		"sign":   {c.Sign},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.SetBasicAuth(c.Email, c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("send sms request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms aero http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result smsAeroResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("parse sms aero response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("sms aero rejected message: %s", result.Message)
	}
	c.Logger.Debug("[sms][sent]", zap.String("to", number))
	return nil
}
