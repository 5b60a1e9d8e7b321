package provider

import (
	"net/url"
	"path"
	"strings"
)

// Status is the canonical task status extracted from a provider payload.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	// StatusUnknown means the payload carried no recognizable status. The
	// caller treats it as "no state change, retry later".
	StatusUnknown Status = "unknown"
)

// statusVocabulary maps raw provider status strings (lowercased) to the
// canonical values. Providers disagree on wording; everything outside
// these vocabularies is unknown.
var statusVocabulary = map[string]Status{
	"pending":  StatusPending,
	"queued":   StatusPending,
	"queueing": StatusPending,

	"processing":  StatusProcessing,
	"running":     StatusProcessing,
	"generating":  StatusProcessing,
	"in_progress": StatusProcessing,

	"finished":  StatusCompleted,
	"completed": StatusCompleted,
	"succeeded": StatusCompleted,
	"success":   StatusCompleted,

	"failed":    StatusFailed,
	"error":     StatusFailed,
	"cancelled": StatusFailed,
	"canceled":  StatusFailed,
}

// statusAccessors lists the payload locations a status string may occupy,
// in priority order. Keeping the scan as an ordered list makes the
// precedence auditable instead of burying it in nested conditionals.
var statusAccessors = []func(map[string]any) string{
	func(m map[string]any) string { return stringField(m, "status") },
	func(m map[string]any) string { return stringField(m, "task_status") },
	func(m map[string]any) string { return stringField(m, "state") },
	func(m map[string]any) string { return stringField(mapField(m, "data"), "status") },
	func(m map[string]any) string { return stringField(mapField(m, "data"), "task_status") },
	func(m map[string]any) string { return stringField(mapField(m, "data"), "state") },
	func(m map[string]any) string { return stringField(mapField(m, "output"), "status") },
	func(m map[string]any) string { return stringField(mapField(m, "result"), "status") },
}

// NormalizeStatus extracts the canonical status from an arbitrary provider
// payload. Matching is case-insensitive.
func NormalizeStatus(raw map[string]any) Status {
	if raw == nil {
		return StatusUnknown
	}
	for _, accessor := range statusAccessors {
		value := strings.ToLower(strings.TrimSpace(accessor(raw)))
		if value == "" {
			continue
		}
		if status, ok := statusVocabulary[value]; ok {
			return status
		}
	}
	return StatusUnknown
}

// Output is one normalized, not-yet-persisted asset extracted from a
// provider payload. Exactly one of SourceURL and Base64 carries the
// payload; when a provider sends both, the inline payload wins so the
// uploader never re-fetches bytes it already has.
type Output struct {
	ID        string
	SourceURL string
	Base64    string
	MimeType  string
	Metadata  map[string]any
}

// Inline reports whether the output carries its payload as base64 bytes.
func (o Output) Inline() bool { return o.Base64 != "" }

// mediaKeys are the entry fields that may wrap the actual media object.
var mediaKeys = []string{"video", "image", "media", "asset"}

// urlAccessors lists the field aliases a remote asset URL may hide behind.
var urlAccessors = []string{
	"url", "public_url", "publicUrl", "signed_url", "signedUrl",
	"image_url", "imageUrl", "video_url", "videoUrl",
	"media_url", "file_url", "download_url", "output_url",
	"uri", "src", "href",
}

// base64Accessors lists the field aliases an inline payload may hide behind.
var base64Accessors = []string{
	"b64_json", "base64", "b64", "data", "image_base64", "video_base64",
}

// mimeAccessors lists the field aliases a mime type / format may hide behind.
var mimeAccessors = []string{
	"mime_type", "mimeType", "content_type", "contentType", "mime", "format",
}

var numericMetaKeys = []string{"width", "height", "duration", "fps"}

// extensionMime maps bare file extensions to mime types. Used both for
// format fields that carry an extension instead of a type/subtype pair
// and for sniffing the path of a resolved URL.
var extensionMime = map[string]string{
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mov":  "video/quicktime",
	"m4v":  "video/x-m4v",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"webp": "image/webp",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
}

const defaultMimeType = "image/png"

// NormalizeOutputs converts a raw provider outputs list into normalized
// outputs. Entries with neither a usable remote URL nor an inline payload
// are dropped; surviving entries keep their input order.
func NormalizeOutputs(entries []any) []Output {
	outputs := make([]Output, 0, len(entries))
	for _, entry := range entries {
		if out, ok := normalizeEntry(entry); ok {
			outputs = append(outputs, out)
		}
	}
	return outputs
}

func normalizeEntry(entry any) (Output, bool) {
	switch v := entry.(type) {
	case string:
		return normalizeBareString(v)
	case map[string]any:
		return normalizeMapEntry(v)
	default:
		return Output{}, false
	}
}

// normalizeBareString handles outputs lists whose entries are plain URL or
// data-URL strings.
func normalizeBareString(value string) (Output, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Output{}, false
	}
	if mime, payload, ok := ParseDataURL(value); ok {
		return Output{Base64: payload, MimeType: mime, Metadata: map[string]any{"kind": kindForMime(mime)}}, true
	}
	if !looksLikeURL(value) {
		return Output{}, false
	}
	mime := mimeFromURLPath(value)
	if mime == "" {
		mime = defaultMimeType
	}
	return Output{SourceURL: value, MimeType: mime, Metadata: map[string]any{"kind": kindForMime(mime)}}, true
}

func normalizeMapEntry(entry map[string]any) (Output, bool) {
	media, nested := locateMedia(entry)

	out := Output{ID: stringField(media, "id")}
	if out.ID == "" {
		out.ID = stringField(entry, "id")
	}

	remoteURL := scanString(media, urlAccessors)
	if remoteURL == "" && nested {
		remoteURL = scanString(entry, urlAccessors)
	}

	inline := scanString(media, base64Accessors)
	if inline == "" && nested {
		inline = scanString(entry, base64Accessors)
	}

	var dataURLMime string
	// Either slot may carry a data: URL; decompose it into mime + payload.
	if mime, payload, ok := ParseDataURL(inline); ok {
		inline = payload
		dataURLMime = mime
	}
	if mime, payload, ok := ParseDataURL(remoteURL); ok {
		if inline == "" {
			inline = payload
			dataURLMime = mime
		}
		remoteURL = ""
	}

	if inline == "" && !looksLikeURL(remoteURL) {
		return Output{}, false
	}

	// Inline payload wins; keeping both would make the uploader re-fetch
	// bytes the provider already sent.
	if inline != "" {
		out.Base64 = inline
	} else {
		out.SourceURL = remoteURL
	}

	out.MimeType = resolveMime(media, entry, nested, dataURLMime, remoteURL)
	out.Metadata = collectMetadata(media, entry, nested, out.MimeType)
	return out, true
}

// locateMedia finds the object holding the actual media payload, which may
// be nested one level below the entry or be the entry itself. The second
// return value reports whether a nested media object was found, in which
// case the entry is still scanned as a fallback.
func locateMedia(entry map[string]any) (map[string]any, bool) {
	for _, key := range mediaKeys {
		if nested := mapField(entry, key); nested != nil {
			return nested, true
		}
	}
	return entry, false
}

// resolveMime applies the mime resolution chain: explicit field on the
// media object, then the entry, then the data-URL mime, then the resolved
// URL's path extension, then the image/png default.
func resolveMime(media, entry map[string]any, nested bool, dataURLMime, remoteURL string) string {
	if mime := scanMime(media); mime != "" {
		return mime
	}
	if nested {
		if mime := scanMime(entry); mime != "" {
			return mime
		}
	}
	if dataURLMime != "" {
		return strings.ToLower(dataURLMime)
	}
	if mime := mimeFromURLPath(remoteURL); mime != "" {
		return mime
	}
	return defaultMimeType
}

func scanMime(m map[string]any) string {
	for _, key := range mimeAccessors {
		if mime := MimeFromFormat(stringField(m, key)); mime != "" {
			return mime
		}
	}
	return ""
}

// MimeFromFormat normalizes a raw mime/format field value. Full
// type/subtype pairs pass through lowered; bare extensions are mapped
// through the extension table; anything else yields empty.
func MimeFromFormat(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	if strings.Contains(value, "/") {
		// Strip any parameters such as "; charset=utf-8".
		if idx := strings.Index(value, ";"); idx >= 0 {
			value = strings.TrimSpace(value[:idx])
		}
		return value
	}
	return extensionMime[strings.TrimPrefix(value, ".")]
}

// mimeFromURLPath sniffs a mime type from the file extension of a URL
// path, ignoring any query string.
func mimeFromURLPath(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(parsed.Path), "."))
	return extensionMime[ext]
}

// collectMetadata attaches best-effort numeric metadata scanned from the
// media object first, then the entry; non-numeric values are dropped.
func collectMetadata(media, entry map[string]any, nested bool, mime string) map[string]any {
	meta := map[string]any{"kind": kindForMime(mime)}
	for _, key := range numericMetaKeys {
		if v, ok := numericField(media, key); ok {
			meta[key] = v
			continue
		}
		if nested {
			if v, ok := numericField(entry, key); ok {
				meta[key] = v
			}
		}
	}
	return meta
}

func kindForMime(mime string) string {
	if strings.HasPrefix(mime, "video/") {
		return "video"
	}
	return "image"
}

// ParseDataURL decomposes a data URL of the form
// "data:<mime>;base64,<payload>" into its mime type and base64 body.
func ParseDataURL(value string) (mime, payload string, ok bool) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "data:") {
		return "", "", false
	}
	rest := strings.TrimPrefix(value, "data:")
	comma := strings.Index(rest, ",")
	if comma < 0 {
		return "", "", false
	}
	header, body := rest[:comma], rest[comma+1:]
	if !strings.HasSuffix(header, ";base64") {
		return "", "", false
	}
	mime = strings.TrimSpace(strings.TrimSuffix(header, ";base64"))
	if mime == "" || body == "" {
		return "", "", false
	}
	return mime, body, true
}

// FormatDataURL recombines a mime type and base64 payload into a data URL.
func FormatDataURL(mime, payload string) string {
	return "data:" + mime + ";base64," + payload
}

// outputsAccessors lists the payload locations an outputs list may occupy.
var outputsAccessors = []func(map[string]any) []any{
	func(m map[string]any) []any { return listField(m, "outputs") },
	func(m map[string]any) []any { return listField(m, "results") },
	func(m map[string]any) []any { return listField(m, "assets") },
	func(m map[string]any) []any { return listField(m, "images") },
	func(m map[string]any) []any { return listField(m, "videos") },
	func(m map[string]any) []any { return listField(m, "data") },
	func(m map[string]any) []any { return listField(mapField(m, "data"), "outputs") },
	func(m map[string]any) []any { return listField(mapField(m, "data"), "results") },
	func(m map[string]any) []any { return listField(mapField(m, "data"), "assets") },
	func(m map[string]any) []any { return listField(mapField(m, "data"), "images") },
	func(m map[string]any) []any { return listField(mapField(m, "data"), "videos") },
	func(m map[string]any) []any { return listField(mapField(m, "output"), "outputs") },
	func(m map[string]any) []any { return listField(mapField(m, "output"), "results") },
}

// singleOutputAccessors covers providers that return one media object
// instead of a list.
var singleOutputAccessors = []func(map[string]any) map[string]any{
	func(m map[string]any) map[string]any { return mapField(m, "output") },
	func(m map[string]any) map[string]any { return mapField(m, "result") },
	func(m map[string]any) map[string]any { return mapField(mapField(m, "data"), "output") },
	func(m map[string]any) map[string]any { return mapField(mapField(m, "data"), "video") },
	func(m map[string]any) map[string]any { return mapField(mapField(m, "data"), "image") },
}

// ExtractOutputs locates the raw outputs list inside a provider payload,
// wrapping single-object responses into a one-element list.
func ExtractOutputs(raw map[string]any) []any {
	if raw == nil {
		return nil
	}
	for _, accessor := range outputsAccessors {
		if list := accessor(raw); len(list) > 0 {
			return list
		}
	}
	for _, accessor := range singleOutputAccessors {
		if single := accessor(raw); single != nil {
			return []any{single}
		}
	}
	return nil
}

// errorAccessors lists the payload locations a failure message may occupy.
var errorAccessors = []func(map[string]any) string{
	func(m map[string]any) string { return stringField(m, "error") },
	func(m map[string]any) string { return stringField(mapField(m, "error"), "message") },
	func(m map[string]any) string { return stringField(mapField(m, "error"), "msg") },
	func(m map[string]any) string { return stringField(m, "error_message") },
	func(m map[string]any) string { return stringField(m, "fail_reason") },
	func(m map[string]any) string { return stringField(m, "failure_reason") },
	func(m map[string]any) string { return stringField(m, "message") },
	func(m map[string]any) string { return stringField(mapField(m, "data"), "error") },
	func(m map[string]any) string { return stringField(mapField(mapField(m, "data"), "error"), "message") },
	func(m map[string]any) string { return stringField(mapField(m, "data"), "fail_reason") },
	func(m map[string]any) string { return stringField(mapField(m, "data"), "message") },
}

// ExtractErrorMessage pulls a best-effort failure message out of a provider
// payload. Returns empty when none of the known locations carry one.
func ExtractErrorMessage(raw map[string]any) string {
	if raw == nil {
		return ""
	}
	for _, accessor := range errorAccessors {
		if msg := strings.TrimSpace(accessor(raw)); msg != "" {
			return msg
		}
	}
	return ""
}

// taskIDAccessors lists the payload locations a task identifier may occupy.
var taskIDAccessors = []func(map[string]any) string{
	func(m map[string]any) string { return stringField(m, "task_id") },
	func(m map[string]any) string { return stringField(m, "taskId") },
	func(m map[string]any) string { return stringField(m, "id") },
	func(m map[string]any) string { return stringField(m, "request_id") },
	func(m map[string]any) string { return stringField(mapField(m, "data"), "task_id") },
	func(m map[string]any) string { return stringField(mapField(m, "data"), "taskId") },
	func(m map[string]any) string { return stringField(mapField(m, "data"), "id") },
	func(m map[string]any) string { return stringField(mapField(m, "output"), "task_id") },
}

// ExtractTaskID pulls the provider-assigned task identifier out of a job
// submission response.
func ExtractTaskID(raw map[string]any) string {
	if raw == nil {
		return ""
	}
	for _, accessor := range taskIDAccessors {
		if id := strings.TrimSpace(accessor(raw)); id != "" {
			return id
		}
	}
	return ""
}

func looksLikeURL(value string) bool {
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func mapField(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}

func listField(m map[string]any, key string) []any {
	if m == nil {
		return nil
	}
	if v, ok := m[key].([]any); ok {
		return v
	}
	return nil
}

func numericField(m map[string]any, key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case float32:
		return v, true
	case int:
		return v, true
	case int32:
		return v, true
	case int64:
		return v, true
	default:
		return nil, false
	}
}

func scanString(m map[string]any, keys []string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(stringField(m, key)); v != "" {
			return v
		}
	}
	return ""
}
