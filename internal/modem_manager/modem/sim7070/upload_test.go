package sim7070

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/at/attest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPEM = []byte("-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----\n")

func scriptFS(fake *attest.Modem) {
	fake.On(AtFSInit, attest.OK()).On(AtFSTerm, attest.OK())
}

func TestCertificateValidate(t *testing.T) {
	assert.NoError(t, NewCertificate("ca.crt", testPEM).Validate())
	assert.ErrorIs(t, NewCertificate("ca.crt", nil).Validate(), ErrEmptyCertificate)

	c := &Certificate{Name: "ca.crt", Size: 1234, Data: make([]byte, 1000)}
	assert.ErrorIs(t, c.Validate(), ErrLengthMismatch)

	assert.Equal(t, 5000, NewCertificate("ca.crt", testPEM).UploadTimeoutMs())
	assert.Equal(t, 6000, NewCertificate("ca.crt", make([]byte, 6000)).UploadTimeoutMs())
}

func TestCertificateFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "httpbin.cer")
	require.NoError(t, os.WriteFile(path, testPEM, 0o600))

	c, err := NewCertificateFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "httpbin.cer", c.Name)
	assert.Equal(t, len(testPEM), c.Size)

	_, err = NewCertificateFromFile(filepath.Join(t.TempDir(), "missing.cer"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestUploadLengthMismatchSendsNothing(t *testing.T) {
	m, fake, _ := newTestModem(t)

	_, err := m.UploadCertificate(&Certificate{Name: "ca.crt", Size: 1234, Data: make([]byte, 1000)})
	assert.ErrorIs(t, err, ErrLengthMismatch)
	assert.Empty(t, fake.Commands())
}

func TestUploadCertificate(t *testing.T) {
	m, fake, rec := newTestModem(t)
	scriptFS(fake)

	cert := NewCertificate("ca.crt", testPEM)
	write := atWriteFile("ca.crt", len(testPEM), 5000)
	fake.On(write, attest.Download(len(testPEM), "OK"))
	fake.On(atConvertCert("ca.crt"), attest.OK())

	res, err := m.UploadCertificate(cert)
	require.NoError(t, err)
	assert.NoError(t, res.Warning)

	assert.Equal(t, []string{AtFSInit, AtFSTerm, AtFSInit, write, AtFSTerm, atConvertCert("ca.crt")}, fake.Commands())
	require.Len(t, fake.Payloads(), 1)
	assert.True(t, bytes.Equal(testPEM, fake.Payloads()[0]))
	assert.Equal(t, 1, rec.count(UploadSettle))
}

func TestUploadConvertFailureIsWarning(t *testing.T) {
	m, fake, _ := newTestModem(t)
	scriptFS(fake)
	fake.On(atWriteFile("ca.crt", len(testPEM), 5000), attest.Download(len(testPEM), "OK"))

	res, err := m.UploadCertificate(NewCertificate("ca.crt", testPEM))
	require.NoError(t, err)
	assert.ErrorIs(t, res.Warning, ErrConvertFailed)
	assert.Contains(t, res.Warning.Error(), `AT+CSSLCFG="del",2,"ca.crt"`)
}

func TestUploadWithoutDownloadPrompt(t *testing.T) {
	m, fake, _ := newTestModem(t)
	scriptFS(fake)

	_, err := m.UploadCertificate(NewCertificate("ca.crt", testPEM))
	assert.ErrorIs(t, err, ErrUploadNoDownloadPrompt)
	assert.Empty(t, fake.Payloads())

	// The file system is released again
	cmds := fake.Commands()
	assert.Equal(t, AtFSTerm, cmds[len(cmds)-1])
}

func TestUploadNotConfirmed(t *testing.T) {
	m, fake, _ := newTestModem(t)
	scriptFS(fake)
	fake.On(atWriteFile("ca.crt", len(testPEM), 5000), attest.Download(len(testPEM), "ERROR"))

	_, err := m.UploadCertificate(NewCertificate("ca.crt", testPEM))
	assert.ErrorIs(t, err, ErrUploadNotConfirmed)
	assert.Zero(t, fake.Count(atConvertCert("ca.crt")))
}

func TestDeleteCertificate(t *testing.T) {
	m, fake, _ := newTestModem(t)
	fake.On(atDeleteCert("ca.crt"), attest.OK(), attest.Reply("ERROR"))

	assert.NoError(t, m.DeleteCertificate("ca.crt"))
	assert.Error(t, m.DeleteCertificate("ca.crt"))
}
