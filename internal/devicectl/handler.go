package devicectl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/larsks/devicesim/internal/cli"
	"github.com/larsks/devicesim/internal/devicecollection"
	"github.com/larsks/devicesim/internal/version"
)

const allDevices = "all"

// APIResponse represents the standard API response format
type APIResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// DeviceListResponse describes every device known to the server
type DeviceListResponse struct {
	Count   int                             `json:"count" yaml:"count"`
	AllOn   bool                            `json:"allOn" yaml:"allOn"`
	Devices []devicecollection.DeviceStatus `json:"devices" yaml:"devices"`
}

// DeviceRequest represents a request to change a device's state
type DeviceRequest struct {
	State    string `json:"state"`
	Duration *uint  `json:"duration,omitempty"`
}

// HTTPClient interface for testing
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Handler implements the devicectl command handler
type Handler struct {
	config     *Config
	httpClient HTTPClient
	stdout     io.Writer
	stderr     io.Writer

	duration uint
}

// NewHandler creates a new devicectl handler
func NewHandler() *Handler {
	return newHandlerWithClient(&http.Client{}, os.Stdout, os.Stderr)
}

func newHandlerWithClient(client HTTPClient, stdout, stderr io.Writer) *Handler {
	return &Handler{
		httpClient: client,
		stdout:     stdout,
		stderr:     stderr,
	}
}

// AddFlags adds command-specific flags
func (h *Handler) AddFlags(fs *pflag.FlagSet) {
	fs.UintVarP(&h.duration, "duration", "d", 0, "Turn the device off again after this many seconds (0 = indefinite)")
}

// Execute implements the cli.SubCommandHandler interface
func (h *Handler) Execute(cmdArgs *cli.CommandArgs) error {
	h.config = cmdArgs.Config.(*Config)

	if len(cmdArgs.Args) == 0 {
		h.showHelp()
		return nil
	}

	command := cmdArgs.Args[0]
	args := cmdArgs.Args[1:]

	switch command {
	case "version":
		version.WriteVersion(h.stdout)
		return nil
	case "help":
		h.showHelp()
		return nil
	case "on":
		return h.cmdState("on", args)
	case "off":
		return h.cmdState("off", args)
	case "reset":
		return h.cmdState("reset", args)
	case "status":
		return h.cmdStatus(args)
	case "policies":
		return h.cmdPolicies(args)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
}

func (h *Handler) showHelp() {
	//nolint:errcheck
	fmt.Fprintf(h.stdout, `devicectl - Command line tool for controlling simulated devices

Usage: devicectl [flags] <command> [arguments]

Commands:
  on <device|all>       Attempt to turn on a device
  off <device|all>      Turn off a device
  reset <device|all>    Turn off a device and reset its failing policy
  status [device|all]   Get status of a device or list all devices
  policies              List the failing policies known to the server
  help                  Show this help
  version               Show version information

Flags:
  --config string       Config file to use (default "%s")
  -d, --duration uint   Turn the device off again after this many seconds (0 = indefinite)
  -o, --output string   Output format (text, json, yaml) (default "text")
  --server-url string   API server URL (default "%s")
  --version             Show version and exit
`, getDefaultConfigFile(), defaultServerURL)
}

func (h *Handler) cmdState(state string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: %s command requires exactly one device argument", ErrInvalidArgument, state)
	}
	if h.duration > 0 && state != "on" {
		return fmt.Errorf("%w: --duration is only valid with the on command", ErrInvalidArgument)
	}

	name := args[0]
	req := DeviceRequest{State: state}
	if h.duration > 0 {
		req.Duration = &h.duration
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	data, err := h.makeAPIRequest("POST", "/device/"+url.PathEscape(name), reqBody)
	if err != nil {
		return err
	}

	if h.config.Output != OutputText {
		return h.printStatusData(name, data)
	}

	switch state {
	case "on":
		fmt.Fprintf(h.stdout, "Device turned on: %s\n", name) //nolint:errcheck
	case "off":
		fmt.Fprintf(h.stdout, "Device turned off: %s\n", name) //nolint:errcheck
	case "reset":
		fmt.Fprintf(h.stdout, "Device reset: %s\n", name) //nolint:errcheck
	}
	return nil
}

func (h *Handler) cmdStatus(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("%w: status command requires zero or one device argument", ErrInvalidArgument)
	}

	name := allDevices
	path := "/devices"
	if len(args) == 1 && args[0] != allDevices {
		name = args[0]
		path = "/device/" + url.PathEscape(name)
	}

	data, err := h.makeAPIRequest("GET", path, nil)
	if err != nil {
		return err
	}

	return h.printStatusData(name, data)
}

func (h *Handler) cmdPolicies(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: policies command takes no arguments", ErrInvalidArgument)
	}

	data, err := h.makeAPIRequest("GET", "/policies", nil)
	if err != nil {
		return err
	}

	var policies []string
	if err := json.Unmarshal(data, &policies); err != nil {
		return fmt.Errorf("error parsing policy list: %w", err)
	}

	if h.config.Output != OutputText {
		return h.render(policies)
	}

	fmt.Fprintf(h.stdout, "Policies:\n") //nolint:errcheck
	for _, name := range policies {
		fmt.Fprintf(h.stdout, "  %s\n", name) //nolint:errcheck
	}
	return nil
}

// printStatusData prints either a single device status or the device list
func (h *Handler) printStatusData(name string, data json.RawMessage) error {
	if name == allDevices {
		var list DeviceListResponse
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("error parsing device list: %w", err)
		}
		if h.config.Output != OutputText {
			return h.render(list)
		}

		fmt.Fprintf(h.stdout, "Devices (%d total, all on: %t):\n", list.Count, list.AllOn) //nolint:errcheck
		for _, dev := range list.Devices {
			fmt.Fprintf(h.stdout, "  %s: %s (policy: %s)\n", dev.Name, onOff(dev.On), dev.Policy) //nolint:errcheck
		}
		return nil
	}

	var status devicecollection.DeviceStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return fmt.Errorf("error parsing device status: %w", err)
	}
	if h.config.Output != OutputText {
		return h.render(status)
	}

	fmt.Fprintf(h.stdout, "Device: %s\n", status.Name)             //nolint:errcheck
	fmt.Fprintf(h.stdout, "Status: %s\n", onOff(status.On))        //nolint:errcheck
	fmt.Fprintf(h.stdout, "Policy: %s\n", status.Policy)           //nolint:errcheck
	fmt.Fprintf(h.stdout, "ID: %s\n", status.ID)                   //nolint:errcheck
	fmt.Fprintf(h.stdout, "Description: %s\n", status.Description) //nolint:errcheck
	return nil
}

// render writes v in the configured structured output format
func (h *Handler) render(v any) error {
	switch h.config.Output {
	case OutputJSON:
		enc := json.NewEncoder(h.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case OutputYAML:
		enc := yaml.NewEncoder(h.stdout)
		enc.SetIndent(2)
		defer enc.Close() //nolint:errcheck
		return enc.Encode(v)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOutput, h.config.Output)
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// makeAPIRequest performs a request and returns the data field of a
// successful response.
func (h *Handler) makeAPIRequest(method, path string, body []byte) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, h.config.ServerURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp APIResponse
	parseErr := json.Unmarshal(respBody, &apiResp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if parseErr == nil && apiResp.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrAPI, apiResp.Message)
		}
		return nil, fmt.Errorf("%w: request failed with status %d", ErrAPI, resp.StatusCode)
	}

	if parseErr != nil {
		return nil, fmt.Errorf("error parsing response: %w", parseErr)
	}
	if apiResp.Status != "ok" {
		return nil, fmt.Errorf("%w: %s", ErrAPI, apiResp.Message)
	}

	return apiResp.Data, nil
}
