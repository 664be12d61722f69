package main

const configTemplate = `# {{ index .Help "model" }}
# Leave empty to use the model found by the last scan.
default-model: {{ .Config.Model }}
# {{ index .Help "fallback-models" }}
fallback-models:
{{- range .Config.FallbackModels }}
  - {{ . }}
{{- end }}
# {{ index .Help "transport" }}
transport: {{ .Config.Transport }}
# {{ index .Help "base-url" }}
# base-url: https://generativelanguage.googleapis.com/v1beta
# {{ index .Help "grounding" }}
grounding: {{ .Config.Grounding }}
# {{ index .Help "system-prompt" }}
# system-prompt: |
#   Tu es un assistant de recherche de missions freelance.
# {{ index .Help "max-input-chars" }}
max-input-chars: {{ .Config.MaxInputChars }}
# {{ index .Help "max-tokens" }}
# max-tokens: 2048
# {{ index .Help "temp" }}
temp: {{ .Config.Temperature }}
# {{ index .Help "topp" }}
topp: {{ .Config.TopP }}
# {{ index .Help "topk" }}
topk: {{ .Config.TopK }}
# {{ index .Help "thinking-budget" }}
thinking-budget: {{ .Config.ThinkingBudget }}
# {{ index .Help "timeout" }}
timeout: {{ .Config.Timeout }}
# {{ index .Help "streaming" }}
streaming: {{ .Config.Streaming }}
# {{ index .Help "raw" }}
raw: {{ .Config.Raw }}
# {{ index .Help "quiet" }}
quiet: {{ .Config.Quiet }}
# {{ index .Help "no-cache" }}
no-cache: {{ .Config.NoCache }}
# {{ index .Help "cache-path" }}
# cache-path: ~/.local/share/nexus
# {{ index .Help "log-level" }}
log-level: {{ .Config.LogLevel }}
# {{ index .Help "github" }}
github:
  owner: {{ .Config.GitHub.Owner }}
  repo: {{ .Config.GitHub.Repo }}
  branch: {{ .Config.GitHub.Branch }}
# {{ index .Help "update-check-ttl" }}
update-check-ttl: {{ .Config.UpdateCheckTTL }}
# {{ index .Help "serve" }}
serve:
  addr: {{ .Config.Serve.Addr }}
  # Requests per second allowed per client, 0 to disable limiting.
  rate: {{ .Config.Serve.Rate }}
  burst: {{ .Config.Serve.Burst }}
  # {{ index .Help "scan-timeout" }}
  scan-timeout: {{ .Config.Serve.ScanTimeout }}
`
