package erp

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailops/erpbridge/pkg/config"
	"github.com/retailops/erpbridge/pkg/enums"
	pkgerrors "github.com/retailops/erpbridge/pkg/errors"
	"github.com/retailops/erpbridge/pkg/logger"
)

var (
	errBaseURLRequired  = errors.New("erp base url is required")
	errAccountRequired  = errors.New("erp account is required")
	errTokenRequired    = errors.New("erp token id and secret are required")
	errConsumerRequired = errors.New("erp consumer key and secret must be set together")
	errLoggerRequired   = errors.New("erp logger is required")
)

// Client exposes the remote system-of-record primitives with centralized
// auth, logging, and error mapping. Lookups return an explicit found flag;
// a not-found response is a normal negative result, never an error.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	account        string
	consumerKey    string
	consumerSecret string
	tokenID        string
	tokenSecret    string
	apiVersion     string
	sandbox        bool
	logger         *logger.Logger
}

// NewClient initializes the ERP wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.ERPConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	account := strings.TrimSpace(cfg.Account)
	if account == "" {
		return nil, errAccountRequired
	}
	tokenID := strings.TrimSpace(cfg.TokenID)
	tokenSecret := strings.TrimSpace(cfg.TokenSecret)
	if tokenID == "" || tokenSecret == "" {
		return nil, errTokenRequired
	}
	consumerKey := strings.TrimSpace(cfg.ConsumerKey)
	consumerSecret := strings.TrimSpace(cfg.ConsumerSecret)
	if (consumerKey == "") != (consumerSecret == "") {
		return nil, errConsumerRequired
	}

	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = 240 * time.Second
	}

	c := &Client{
		httpClient:     &http.Client{Timeout: timeout},
		baseURL:        baseURL,
		account:        account,
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		tokenID:        tokenID,
		tokenSecret:    tokenSecret,
		apiVersion:     cfg.APIVersion,
		sandbox:        cfg.Sandbox,
		logger:         logg,
	}

	logg.Info(ctx, "erp client initialized")
	return c, nil
}

// Account returns the remote account realm the client addresses. Sandbox
// accounts carry the _SB1 suffix the remote expects.
func (c *Client) Account() string {
	if c == nil {
		return ""
	}
	if c.sandbox {
		return c.account + "_SB1"
	}
	return c.account
}

type itemDTO struct {
	InternalID        string          `json:"internal_id"`
	SKU               string          `json:"sku"`
	Description       string          `json:"purchase_description"`
	LastPurchasePrice decimal.Decimal `json:"last_purchase_price"`
	Locations         []struct {
		LocationID        string          `json:"location_id"`
		AverageCost       decimal.Decimal `json:"average_cost"`
		LastPurchasePrice decimal.Decimal `json:"last_purchase_price"`
	} `json:"locations"`
}

func (d *itemDTO) toCatalogItem() *CatalogItem {
	item := &CatalogItem{
		InternalID:        d.InternalID,
		SKU:               d.SKU,
		Description:       d.Description,
		LastPurchasePrice: d.LastPurchasePrice,
	}
	for _, loc := range d.Locations {
		item.Locations = append(item.Locations, LocationCost{
			LocationID:        loc.LocationID,
			AverageCost:       loc.AverageCost,
			LastPurchasePrice: loc.LastPurchasePrice,
		})
	}
	return item
}

type submissionDTO struct {
	InternalID string         `json:"internal_id"`
	Status     string         `json:"status"`
	Notices    []RemoteNotice `json:"notices"`
}

func (d *submissionDTO) toOutcome() *SubmissionOutcome {
	outcome := &SubmissionOutcome{
		RemoteID: d.InternalID,
		Notices:  d.Notices,
	}
	switch d.Status {
	case "already_exists":
		outcome.Status = enums.SubmissionStatusAlreadyExists
	default:
		outcome.Status = enums.SubmissionStatusCreated
	}
	for _, n := range d.Notices {
		if n.Severity == enums.NoticeSeverityError {
			outcome.Status = enums.SubmissionStatusFailed
			break
		}
		if n.Severity == enums.NoticeSeverityWarn && outcome.Status == enums.SubmissionStatusCreated {
			outcome.Status = enums.SubmissionStatusWarning
		}
	}
	return outcome
}

// FindItemBySKU resolves a catalog item by the local SKU.
func (c *Client) FindItemBySKU(ctx context.Context, sku string) (*CatalogItem, bool, error) {
	if strings.TrimSpace(sku) == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	c.log(ctx, "request", "find_item_by_sku", map[string]any{"sku": sku})

	path := fmt.Sprintf("/items?sku=%s", url.QueryEscape(sku))
	var dto itemDTO
	found, err := c.getJSON(ctx, path, "find item by sku", &dto)
	if err != nil || !found {
		return nil, false, err
	}
	return dto.toCatalogItem(), true, nil
}

// FindItemByID resolves a catalog item by the remote internal identifier.
func (c *Client) FindItemByID(ctx context.Context, internalID string) (*CatalogItem, bool, error) {
	if strings.TrimSpace(internalID) == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "item internal id is required")
	}
	c.log(ctx, "request", "find_item_by_id", map[string]any{"internal_id": internalID})

	path := fmt.Sprintf("/items/%s", url.PathEscape(internalID))
	var dto itemDTO
	found, err := c.getJSON(ctx, path, "find item by id", &dto)
	if err != nil || !found {
		return nil, false, err
	}
	return dto.toCatalogItem(), true, nil
}

// AdjustmentExists looks up an adjustment previously created with the
// given external identifier, returning its remote id when present.
func (c *Client) AdjustmentExists(ctx context.Context, externalID string) (string, bool, error) {
	if strings.TrimSpace(externalID) == "" {
		return "", false, pkgerrors.New(pkgerrors.CodeValidation, "external id is required")
	}
	c.log(ctx, "request", "adjustment_exists", map[string]any{"external_id": externalID})

	path := fmt.Sprintf("/adjustments?external_id=%s", url.QueryEscape(externalID))
	var dto struct {
		InternalID string `json:"internal_id"`
	}
	found, err := c.getJSON(ctx, path, "check adjustment", &dto)
	if err != nil || !found {
		return "", false, err
	}
	return dto.InternalID, true, nil
}

// SubmitAdjustment sends the adjustment header plus resolved lines. The
// remote system keys duplicates by the header's external id, so a duplicate
// submission comes back as already_exists rather than a second creation.
func (c *Client) SubmitAdjustment(ctx context.Context, header AdjustmentHeader, lines []AdjustmentLine) (*SubmissionOutcome, error) {
	c.log(ctx, "request", "submit_adjustment", map[string]any{
		"external_id": header.ExternalID,
		"location_id": header.LocationID,
		"lines":       len(lines),
	})

	body := struct {
		AdjustmentHeader
		Lines []AdjustmentLine `json:"inventory"`
	}{AdjustmentHeader: header, Lines: lines}

	dto, err := c.postJSON(ctx, http.MethodPost, "/adjustments", "submit adjustment", body)
	if err != nil {
		return nil, err
	}

	outcome := dto.toOutcome()
	c.log(ctx, "response", "submit_adjustment", map[string]any{
		"internal_id": outcome.RemoteID,
		"status":      string(outcome.Status),
	})
	return outcome, nil
}

// UpsertItem creates the catalog item when internalID is empty and updates
// it otherwise.
func (c *Client) UpsertItem(ctx context.Context, internalID string, input ItemUpsert) (*SubmissionOutcome, error) {
	method := http.MethodPost
	path := "/items"
	op := "create item"
	if strings.TrimSpace(internalID) != "" {
		method = http.MethodPut
		path = fmt.Sprintf("/items/%s", url.PathEscape(internalID))
		op = "update item"
	}
	c.log(ctx, "request", "upsert_item", map[string]any{"sku": input.SKU, "internal_id": internalID})

	dto, err := c.postJSON(ctx, method, path, op, input)
	if err != nil {
		return nil, err
	}

	outcome := dto.toOutcome()
	c.log(ctx, "response", "upsert_item", map[string]any{
		"internal_id": outcome.RemoteID,
		"status":      string(outcome.Status),
	})
	return outcome, nil
}

// getJSON performs a lookup; a 404 yields (false, nil) rather than an error.
func (c *Client) getJSON(ctx context.Context, path, op string, dest any) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		c.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("erp %s failed", op))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, c.statusError(ctx, resp, op)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("erp %s: decode response", op))
	}
	return true, nil
}

func (c *Client) postJSON(ctx context.Context, method, path, op string, body any) (*submissionDTO, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("erp %s: encode request", op))
	}

	resp, err := c.do(ctx, method, path, bytes.NewReader(payload))
	if err != nil {
		c.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("erp %s failed", op))
	}
	defer resp.Body.Close()

	// duplicate external id is a dedupe, not a failure
	if resp.StatusCode == http.StatusConflict {
		var dto submissionDTO
		if err := json.NewDecoder(resp.Body).Decode(&dto); err == nil {
			dto.Status = "already_exists"
			return &dto, nil
		}
		return &submissionDTO{Status: "already_exists"}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusError(ctx, resp, op)
	}

	var dto submissionDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("erp %s: decode response", op))
	}
	return &dto, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, err
	}
	c.authorize(req)
	req.Header.Set("X-ERP-Account", c.Account())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

// authorize signs the request with the token-based scheme when a consumer
// pair is configured and falls back to the bearer token otherwise.
func (c *Client) authorize(req *http.Request) {
	if c.consumerKey == "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s.%s", c.tokenID, c.tokenSecret))
		return
	}
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	base := strings.Join([]string{c.Account(), c.consumerKey, c.tokenID, nonce, timestamp}, "&")
	mac := hmac.New(sha256.New, []byte(c.consumerSecret+"&"+c.tokenSecret))
	mac.Write([]byte(base))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	req.Header.Set("Authorization", fmt.Sprintf(
		"TBA realm=%q, consumer_key=%q, token=%q, nonce=%q, timestamp=%q, signature_method=%q, signature=%q",
		c.Account(), c.consumerKey, c.tokenID, nonce, timestamp, "HMAC-SHA256", signature))
}

func (c *Client) endpoint(path string) string {
	version := c.apiVersion
	if version == "" {
		version = "v1"
	}
	return fmt.Sprintf("%s/api/%s%s", c.baseURL, version, path)
}

func (c *Client) statusError(ctx context.Context, resp *http.Response, op string) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	code := domainCodeForStatus(resp.StatusCode)
	c.log(ctx, "error", op, map[string]any{
		"error":  fmt.Sprintf("status %d", resp.StatusCode),
		"status": resp.StatusCode,
		"body":   string(snippet),
	})
	return pkgerrors.New(code, fmt.Sprintf("erp %s failed with status %d", op, resp.StatusCode)).
		WithDetails(map[string]any{"status": resp.StatusCode})
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("erp %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("erp %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"token", "secret", "signature", "password"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
