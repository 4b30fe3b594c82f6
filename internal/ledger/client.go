package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/vanessaachristy/mymedtrust-be/internal/config"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain/identity"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain/record"
)

const senderHeader = "X-Sender-Account"

// Client is the HTTP implementation of Gateway against a ledger node.
// Calls (reads) are retried with bounded exponential backoff; sends
// (transactions) are retried only while the request provably never
// reached the node, because a submitted transaction has no
// partial-application guarantee and no rollback.
type Client struct {
	base    string
	http    *http.Client
	cfg     config.LedgerConfig
	log     *zap.Logger
	metrics CallObserver
}

// CallObserver receives per-call latency and outcome. Satisfied by the
// metrics collector; a nil observer is allowed.
type CallObserver interface {
	ObserveLedgerCall(method string, d time.Duration, err error)
}

func NewClient(cfg config.LedgerConfig, log *zap.Logger, metrics CallObserver) *Client {
	return &Client{
		base: strings.TrimRight(cfg.Endpoint, "/"),
		http: &http.Client{
			Timeout: cfg.SendTimeout,
		},
		cfg:     cfg,
		log:     log,
		metrics: metrics,
	}
}

func (c *Client) GetPatient(ctx context.Context, addr domain.Address) (*identity.Patient, error) {
	var out identity.Patient
	if err := c.call(ctx, "getPatient", "/ledger/patients/"+addr.String(), &out); err != nil {
		return nil, err
	}
	if out.Address().IsZero() {
		return nil, identity.ErrPatientNotFound
	}
	return &out, nil
}

func (c *Client) ListPatients(ctx context.Context) ([]*identity.Patient, error) {
	var out []*identity.Patient
	if err := c.call(ctx, "listPatients", "/ledger/patients", &out); err != nil {
		return nil, err
	}
	// The directory keeps freed slots as zero entries; skip them.
	patients := make([]*identity.Patient, 0, len(out))
	for _, p := range out {
		if !p.Address().IsZero() {
			patients = append(patients, p)
		}
	}
	return patients, nil
}

func (c *Client) GetDoctor(ctx context.Context, addr domain.Address) (*identity.Doctor, error) {
	var out identity.Doctor
	if err := c.call(ctx, "getDoctor", "/ledger/doctors/"+addr.String(), &out); err != nil {
		return nil, err
	}
	if out.Address().IsZero() {
		return nil, identity.ErrDoctorNotFound
	}
	return &out, nil
}

func (c *Client) ListDoctors(ctx context.Context) ([]*identity.Doctor, error) {
	var out []*identity.Doctor
	if err := c.call(ctx, "listDoctors", "/ledger/doctors", &out); err != nil {
		return nil, err
	}
	doctors := make([]*identity.Doctor, 0, len(out))
	for _, d := range out {
		if !d.Address().IsZero() {
			doctors = append(doctors, d)
		}
	}
	return doctors, nil
}

func (c *Client) GetRecord(ctx context.Context, id string) (*record.Record, error) {
	var out record.Record
	if err := c.call(ctx, "getRecord", "/ledger/records/"+id, &out); err != nil {
		return nil, err
	}
	if !out.Exists() {
		return nil, record.ErrRecordNotFound
	}
	return &out, nil
}

func (c *Client) CreatePatient(ctx context.Context, cmd *identity.CreatePatientCommand, sender domain.Address) (*Receipt, error) {
	return c.send(ctx, "createPatient", "/ledger/patients", sender, map[string]any{
		"primary_info":      cmd.PrimaryInfo,
		"emergency_contact": cmd.EmergencyContact,
		"emergency_number":  cmd.EmergencyNumber,
		"blood_type":        cmd.BloodType,
		"height":            cmd.Height,
		"weight":            cmd.Weight,
	})
}

func (c *Client) CreateDoctor(ctx context.Context, cmd *identity.CreateDoctorCommand, sender domain.Address) (*Receipt, error) {
	return c.send(ctx, "createDoctor", "/ledger/doctors", sender, map[string]any{
		"primary_info":  cmd.PrimaryInfo,
		"qualification": cmd.Qualification,
		"major":         cmd.Major,
	})
}

func (c *Client) CreateRecord(ctx context.Context, id, fingerprint string, doctor, patient, sender domain.Address) (*Receipt, error) {
	return c.send(ctx, "createRecord", "/ledger/records", sender, map[string]any{
		"id":            id,
		"fingerprint":   fingerprint,
		"issuer_doctor": doctor,
		"patient":       patient,
	})
}

func (c *Client) EditRecord(ctx context.Context, id, fingerprint string, status record.Status, sender domain.Address) (*Receipt, error) {
	return c.send(ctx, "editRecord", "/ledger/records/"+id+"/edit", sender, map[string]any{
		"fingerprint": fingerprint,
		"status":      status,
	})
}

func (c *Client) RemoveRecord(ctx context.Context, id string, patient, sender domain.Address) (*Receipt, error) {
	return c.send(ctx, "removeRecord", "/ledger/records/"+id+"/remove", sender, map[string]any{
		"patient": patient,
	})
}

func (c *Client) AddWhitelist(ctx context.Context, doctor, patient, sender domain.Address) (*Receipt, error) {
	return c.send(ctx, "addWhitelist", "/ledger/whitelist", sender, map[string]any{
		"doctor":  doctor,
		"patient": patient,
	})
}

func (c *Client) RemoveWhitelist(ctx context.Context, doctor, patient, sender domain.Address) (*Receipt, error) {
	return c.send(ctx, "removeWhitelist", "/ledger/whitelist/remove", sender, map[string]any{
		"doctor":  doctor,
		"patient": patient,
	})
}

// call performs a read with retry. Reads are idempotent so every
// transport failure is retried up to the configured budget.
func (c *Client) call(ctx context.Context, method, path string, out any) error {
	op := func() error {
		ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()

		start := time.Now()
		err := c.do(ctx, http.MethodGet, path, nil, domain.Address(""), out)
		c.observe(method, start, err)

		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(op, c.newBackoff(ctx))
	if err != nil {
		c.log.Warn("ledger call failed",
			zap.String("method", method),
			zap.Error(err),
		)
	}
	return err
}

// send submits a transaction. No retry once the request may have been
// delivered: the node offers no idempotency on sends, and re-submitting
// could apply the mutation twice.
func (c *Client) send(ctx context.Context, method, path string, sender domain.Address, body any) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.SendTimeout)
	defer cancel()

	var wrapper struct {
		Receipt Receipt `json:"receipt"`
	}
	start := time.Now()
	err := c.do(ctx, http.MethodPost, path, body, sender, &wrapper)
	c.observe(method, start, err)
	if err != nil {
		c.log.Warn("ledger send failed",
			zap.String("method", method),
			zap.String("sender", sender.String()),
			zap.Error(err),
		)
		return nil, err
	}

	c.log.Info("ledger transaction landed",
		zap.String("method", method),
		zap.String("tx_hash", wrapper.Receipt.TxHash),
		zap.Uint64("block", wrapper.Receipt.Block),
	)
	return &wrapper.Receipt, nil
}

func (c *Client) do(ctx context.Context, httpMethod, path string, body any, sender domain.Address, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, c.base+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if !sender.IsZero() {
		req.Header.Set(senderHeader, sender.String())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// Caller maps this to the entity-specific not-found by checking
		// the zero value; the node also zero-fills unknown slots.
		return nil
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: node returned %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		var nodeErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &nodeErr)
		if nodeErr.Error == "" {
			nodeErr.Error = resp.Status
		}
		return fmt.Errorf("%w: %s", ErrRejected, nodeErr.Error)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 {
		raw = envelope.Data
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) newBackoff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.MaxInterval = c.cfg.MaxBackoff
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxRetries)), ctx)
}

func (c *Client) observe(method string, start time.Time, err error) {
	if c.metrics != nil {
		c.metrics.ObserveLedgerCall(method, time.Since(start), err)
	}
}

func retryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
