package sim7070

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/at"
	"github.com/LeoCommon/cellgw/pkg/log"
	"go.uber.org/zap"
)

const (
	fsInitSettle = 500 * time.Millisecond
	fsTermSettle = 200 * time.Millisecond

	// UploadSettle is the time the modem needs to store the streamed file
	UploadSettle = 1500 * time.Millisecond

	// minUploadTimeoutMs is the floor of the modem side write timeout
	minUploadTimeoutMs = 5000
)

// Certificate is a file destined for the modem's customer directory.
// Size is what is announced to the modem and must match Data exactly.
type Certificate struct {
	Name string
	Size int
	Data []byte
}

func NewCertificate(name string, data []byte) *Certificate {
	return &Certificate{Name: name, Size: len(data), Data: data}
}

func NewCertificateFromFile(path string) (*Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("certificate %s: %w", path, err)
	}

	return NewCertificate(filepath.Base(path), data), nil
}

func (c *Certificate) Validate() error {
	if c.Name == "" || len(c.Data) == 0 {
		return ErrEmptyCertificate
	}

	if c.Size != len(c.Data) {
		return fmt.Errorf("%w: declared %d, have %d bytes", ErrLengthMismatch, c.Size, len(c.Data))
	}
	return nil
}

// UploadTimeoutMs is the modem side timeout for the write, proportional to the size
func (c *Certificate) UploadTimeoutMs() int {
	return max(minUploadTimeoutMs, c.Size)
}

type UploadResult struct {
	Name string
	Size int

	// Warning is set when the file was stored but could not be converted,
	// usually because a certificate of that name already exists
	Warning error
}

// UploadCertificate stores the certificate on the modem file system and converts it.
// A failed conversion is reported in the result, not as error.
func (m *Modem) UploadCertificate(cert *Certificate) (*UploadResult, error) {
	if err := cert.Validate(); err != nil {
		return nil, err
	}

	log.Info("uploading certificate", zap.String("name", cert.Name), zap.Int("size", cert.Size))

	// Terminate and re-init for a clean buffer
	for _, step := range []struct {
		cmd    string
		settle time.Duration
	}{
		{AtFSInit, fsInitSettle},
		{AtFSTerm, fsTermSettle},
		{AtFSInit, fsInitSettle},
	} {
		if err := m.exec(step.cmd); err != nil {
			return nil, err
		}
		m.sleep(step.settle)
	}

	cmd := at.Cmd(atWriteFile(cert.Name, cert.Size, cert.UploadTimeoutMs())).
		WithPayload(at.Download, cert.Data, at.DefaultPromptTimeout).
		WithSettle(UploadSettle)

	resp, err := m.run(cmd)
	if err != nil {
		return nil, err
	}

	if !resp.PromptSeen || !resp.Contains(at.OK) {
		failure := ErrUploadNotConfirmed
		if !resp.PromptSeen {
			failure = ErrUploadNoDownloadPrompt
		}

		log.Error("certificate upload failed", zap.String("name", cert.Name), zap.Error(failure), zap.Strings("lines", resp.Lines))
		if err := m.exec(AtFSTerm); err != nil {
			return nil, err
		}
		return nil, failure
	}

	if err := m.exec(AtFSTerm); err != nil {
		return nil, err
	}

	res := &UploadResult{Name: cert.Name, Size: cert.Size}

	resp, err = m.run(at.Cmd(atConvertCert(cert.Name)))
	if err != nil {
		return nil, err
	}

	if !resp.Contains(at.OK) {
		res.Warning = fmt.Errorf("%w for %q, a certificate with that name may already exist, delete it with %s", ErrConvertFailed, cert.Name, atDeleteCert(cert.Name))
		log.Warn("certificate stored but not converted", zap.String("name", cert.Name), zap.Strings("lines", resp.Lines))
		return res, nil
	}

	log.Info("certificate uploaded and converted", zap.String("name", cert.Name))
	return res, nil
}

// DeleteCertificate removes a converted certificate from the modem
func (m *Modem) DeleteCertificate(name string) error {
	resp, err := m.run(at.Cmd(atDeleteCert(name)))
	if err != nil {
		return err
	}

	if !resp.OK() {
		return fmt.Errorf("delete certificate %q: %s", name, resp.Terminal)
	}
	return nil
}
