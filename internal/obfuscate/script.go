// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package obfuscate

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/goccy/go-json"

	"github.com/hanzoai/analytics/internal/cipher"
)

// loaderTemplate is the browser loader. It captures its own script element
// synchronously, copies the element's data-* attributes onto the injected
// tracker so that the tracker resolves the same configuration, and records
// its own src for endpoint fallback.
var loaderTemplate = template.Must(template.New("loader").Parse(`(function () {
  var self = document.currentScript;
  var key = new Uint8Array([{{.KeyBytes}}]);
  var pageSize = {{.PageSize}};
  function blob(res) {
    if (!res.ok) throw new Error('HTTP ' + res.status + ' ' + res.url);
    return res.arrayBuffer();
  }
  Promise.all([fetch({{.ArtifactURL}}).then(blob), fetch({{.DecoderURL}}).then(blob)])
    .then(function (blobs) {
      var artifact = new Uint8Array(blobs[0]);
      return WebAssembly.instantiate(blobs[1]).then(function (out) {
        var exports = out.instance.exports;
        var memory = exports.memory;
        var need = Math.ceil((artifact.length + key.length) / pageSize);
        var have = memory.buffer.byteLength / pageSize;
        if (need > have) memory.grow(need - have);
        var mem = new Uint8Array(memory.buffer);
        mem.set(artifact, 0);
        mem.set(key, artifact.length);
        exports[{{.Export}}](0, artifact.length, artifact.length, key.length);
        var text = new TextDecoder().decode(new Uint8Array(memory.buffer, 0, artifact.length));
        var el = document.createElement('script');
        if (self) {
          for (var i = 0; i < self.attributes.length; i++) {
            var a = self.attributes[i];
            if (a.name.indexOf('data-') === 0) el.setAttribute(a.name, a.value);
          }
          if (self.src) el.setAttribute('data-loader-src', self.src);
        }
        el.textContent = text;
        document.head.appendChild(el);
      });
    })
    .catch(function (e) {
      if (typeof console !== 'undefined') console.error('Tracker failed to load:', e);
    });
})();
`))

type loaderParams struct {
	KeyBytes    string
	PageSize    int
	ArtifactURL string
	DecoderURL  string
	Export      string
}

// renderLoader produces the loader script. URLs and the export name are
// emitted as JSON string literals.
func renderLoader(key cipher.Key, artifactURL, decoderURL, export string) ([]byte, error) {
	nums := make([]string, len(key))
	for i, b := range key {
		nums[i] = strconv.Itoa(int(b))
	}

	quote := func(s string) (string, error) {
		b, err := json.Marshal(s)
		return string(b), err
	}
	p := loaderParams{KeyBytes: strings.Join(nums, ","), PageSize: cipher.PageSize}
	var err error
	if p.ArtifactURL, err = quote(artifactURL); err != nil {
		return nil, err
	}
	if p.DecoderURL, err = quote(decoderURL); err != nil {
		return nil, err
	}
	if p.Export, err = quote(export); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := loaderTemplate.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("render loader: %w", err)
	}
	return buf.Bytes(), nil
}
