package devicectl

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/larsks/devicesim/internal/cli"
)

// MockHTTPClient implements HTTPClient interface for testing
type MockHTTPClient struct {
	responses map[string]mockResponse
	requests  []*http.Request
	bodies    []string
}

type mockResponse struct {
	statusCode int
	body       string
}

func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{
		responses: make(map[string]mockResponse),
	}
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.requests = append(m.requests, req)

	body := ""
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		body = string(data)
	}
	m.bodies = append(m.bodies, body)

	key := req.Method + " " + req.URL.Path
	if resp, ok := m.responses[key]; ok {
		return &http.Response{
			StatusCode: resp.statusCode,
			Body:       io.NopCloser(strings.NewReader(resp.body)),
		}, nil
	}

	return &http.Response{
		StatusCode: 404,
		Body:       io.NopCloser(strings.NewReader(`{"status":"error","message":"Not found"}`)),
	}, nil
}

func (m *MockHTTPClient) AddResponse(method, path string, statusCode int, body string) {
	m.responses[method+" "+path] = mockResponse{statusCode: statusCode, body: body}
}

func (m *MockHTTPClient) GetLastRequest() (*http.Request, string) {
	if len(m.requests) == 0 {
		return nil, ""
	}
	return m.requests[len(m.requests)-1], m.bodies[len(m.bodies)-1]
}

const (
	lampStatus = `{"name":"lamp","id":"b1c2","policy":"never-failing","on":true,"description":"StandardDevice{policy=never-failing, on=true}"}`
	deviceList = `{"count":2,"allOn":false,"devices":[` +
		`{"name":"kettle","id":"a1","policy":"always-failing","on":false,"description":"StandardDevice{policy=always-failing, on=false}"},` +
		lampStatus + `]}`
)

func runCommand(t *testing.T, mock *MockHTTPClient, output string, duration uint, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	h := newHandlerWithClient(mock, &stdout, &stderr)
	h.duration = duration

	cfg := &Config{ServerURL: "http://devices.example.com:8080", Output: output}
	err := h.Execute(&cli.CommandArgs{Command: "start", Config: cfg, Args: args})
	return stdout.String(), err
}

func TestExecuteHelp(t *testing.T) {
	mock := NewMockHTTPClient()

	out, err := runCommand(t, mock, OutputText, 0)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage: devicectl")

	out, err = runCommand(t, mock, OutputText, 0, "help")
	require.NoError(t, err)
	assert.Contains(t, out, "policies")
	assert.Empty(t, mock.requests)
}

func TestExecuteUnknownCommand(t *testing.T) {
	_, err := runCommand(t, NewMockHTTPClient(), OutputText, 0, "toggle", "lamp")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestCommandValidation(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		duration uint
	}{
		{"on without device", []string{"on"}, 0},
		{"off with two devices", []string{"off", "a", "b"}, 0},
		{"status with two devices", []string{"status", "a", "b"}, 0},
		{"policies with argument", []string{"policies", "random"}, 0},
		{"duration with off", []string{"off", "lamp"}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockHTTPClient()
			_, err := runCommand(t, mock, OutputText, tt.duration, tt.args...)
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.Empty(t, mock.requests)
		})
	}
}

func TestStateRequests(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		duration uint
		wantPath string
		wantBody string
		wantOut  string
	}{
		{
			name:     "on",
			args:     []string{"on", "lamp"},
			wantPath: "/device/lamp",
			wantBody: `{"state":"on"}`,
			wantOut:  "Device turned on: lamp\n",
		},
		{
			name:     "on with duration",
			args:     []string{"on", "lamp"},
			duration: 30,
			wantPath: "/device/lamp",
			wantBody: `{"state":"on","duration":30}`,
			wantOut:  "Device turned on: lamp\n",
		},
		{
			name:     "off",
			args:     []string{"off", "lamp"},
			wantPath: "/device/lamp",
			wantBody: `{"state":"off"}`,
			wantOut:  "Device turned off: lamp\n",
		},
		{
			name:     "reset all",
			args:     []string{"reset", "all"},
			wantPath: "/device/all",
			wantBody: `{"state":"reset"}`,
			wantOut:  "Device reset: all\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockHTTPClient()
			mock.AddResponse("POST", tt.wantPath, 200, `{"status":"ok","data":`+lampStatus+`}`)

			out, err := runCommand(t, mock, OutputText, tt.duration, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOut, out)

			req, body := mock.GetLastRequest()
			require.NotNil(t, req)
			assert.Equal(t, "POST", req.Method)
			assert.Equal(t, "http://devices.example.com:8080"+tt.wantPath, req.URL.String())
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, body)
		})
	}
}

func TestOnDenied(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.AddResponse("POST", "/device/kettle", 409,
		`{"status":"error","message":"illegal state: failing policy denied turning on"}`)

	_, err := runCommand(t, mock, OutputText, 0, "on", "kettle")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAPI)
	assert.Contains(t, err.Error(), "failing policy denied turning on")
}

func TestErrorWithoutMessage(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.AddResponse("GET", "/devices", 502, `bad gateway`)

	_, err := runCommand(t, mock, OutputText, 0, "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestStatusText(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.AddResponse("GET", "/devices", 200, `{"status":"ok","data":`+deviceList+`}`)
	mock.AddResponse("GET", "/device/lamp", 200, `{"status":"ok","data":`+lampStatus+`}`)

	out, err := runCommand(t, mock, OutputText, 0, "status")
	require.NoError(t, err)
	assert.Equal(t, "Devices (2 total, all on: false):\n"+
		"  kettle: off (policy: always-failing)\n"+
		"  lamp: on (policy: never-failing)\n", out)

	out, err = runCommand(t, mock, OutputText, 0, "status", "all")
	require.NoError(t, err)
	assert.Contains(t, out, "Devices (2 total")

	out, err = runCommand(t, mock, OutputText, 0, "status", "lamp")
	require.NoError(t, err)
	assert.Contains(t, out, "Device: lamp\n")
	assert.Contains(t, out, "Status: on\n")
	assert.Contains(t, out, "Description: StandardDevice{policy=never-failing, on=true}\n")
}

func TestStatusStructuredOutput(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.AddResponse("GET", "/devices", 200, `{"status":"ok","data":`+deviceList+`}`)

	out, err := runCommand(t, mock, OutputJSON, 0, "status")
	require.NoError(t, err)
	assert.JSONEq(t, deviceList, out)

	out, err = runCommand(t, mock, OutputYAML, 0, "status")
	require.NoError(t, err)

	var decoded DeviceListResponse
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 2, decoded.Count)
	require.Len(t, decoded.Devices, 2)
	assert.Equal(t, "kettle", decoded.Devices[0].Name)
	assert.True(t, decoded.Devices[1].On)
	assert.Contains(t, out, "allOn: false")
}

func TestPolicies(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.AddResponse("GET", "/policies", 200,
		`{"status":"ok","data":["always-failing","countdown","never-failing","random"]}`)

	out, err := runCommand(t, mock, OutputText, 0, "policies")
	require.NoError(t, err)
	assert.Equal(t, "Policies:\n  always-failing\n  countdown\n  never-failing\n  random\n", out)

	out, err = runCommand(t, mock, OutputYAML, 0, "policies")
	require.NoError(t, err)
	assert.Equal(t, "- always-failing\n- countdown\n- never-failing\n- random\n", out)
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, NewMockHTTPClient(), OutputText, 0, "version")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
