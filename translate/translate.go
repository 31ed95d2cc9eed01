// Package translate fills properties files with machine translations.
//
// TranslateFile produces a complete target-language file from a source
// file. TranslateMissing adds only the messages an existing translation
// lacks, optionally retranslating messages whose source text changed since
// the last run (tracked in propkit.lock next to the output).
package translate

import (
	"context"
	"fmt"
	"os"

	"github.com/minios-linux/propkit/lockfile"
	"github.com/minios-linux/propkit/merge"
	"github.com/minios-linux/propkit/propfile"
)

// ---------------------------------------------------------------------------
// Translation options
// ---------------------------------------------------------------------------

// Options controls a translation run.
type Options struct {
	// Input is the source-language properties file.
	Input string
	// Output is the target file. Empty derives it from Input and To.
	Output string
	// From is the source language code.
	From string
	// To is the target language code.
	To string
	// RemoveBackslashes sends multiline values flattened to one line.
	RemoveBackslashes bool
	// Sort rewrites the output in the order and layout of Input
	// (TranslateMissing only; TranslateFile always does).
	Sort bool
	// Changed also retranslates messages whose source changed since they
	// were last translated (TranslateMissing only).
	Changed bool
	// Translator performs the translation.
	Translator Translator
	// OnProgress is called after each request with the number of strings
	// translated so far.
	OnProgress func(done, total int)
	// OnLog emits log messages during translation.
	OnLog func(format string, args ...any)
	// Verbose enables detailed logging.
	Verbose bool
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) debug(format string, args ...any) {
	if o.Verbose {
		o.log(format, args...)
	}
}

func (o *Options) output() string {
	if o.Output != "" {
		return o.Output
	}
	return propfile.LocalizedPath(o.Input, o.To)
}

func (o *Options) mode() propfile.Mode {
	if o.RemoveBackslashes {
		return propfile.Normalized
	}
	return propfile.Raw
}

// Result describes what a run did.
type Result struct {
	// Output is the path that was (or would have been) written.
	Output string
	// Translated lists the keys sent for translation, in source order.
	Translated []string
	// Missing lists keys that were absent from the output file.
	Missing []string
	// Changed lists keys retranslated because their source changed.
	Changed []string
	// Written reports whether Output was written.
	Written bool
}

// ---------------------------------------------------------------------------
// Whole-file translation
// ---------------------------------------------------------------------------

// TranslateFile translates every message of opts.Input and writes the
// result to the output file, laid out like the input. The output is
// overwritten if it exists.
func TranslateFile(ctx context.Context, opts Options) (*Result, error) {
	if err := propfile.RequireFile(opts.Input); err != nil {
		return nil, err
	}
	out := opts.output()
	res := &Result{Output: out}

	src, err := propfile.ParseFile(opts.Input, opts.mode())
	if err != nil {
		return nil, err
	}
	doc, err := propfile.ReadDocument(opts.Input)
	if err != nil {
		return nil, err
	}

	keys := src.Keys()
	opts.log("Translating %d messages from %s to %s", len(keys), opts.From, opts.To)

	translated, err := translateKeys(ctx, &opts, keys, src)
	if err != nil {
		return nil, err
	}

	merged := merge.Reconcile(doc, translated)
	if err := propfile.WriteFile(out, merged.Bytes()); err != nil {
		return nil, err
	}
	res.Translated = keys
	res.Written = true

	updateLock(&opts, out, keys, keys, src)
	return res, nil
}

// ---------------------------------------------------------------------------
// Missing-message translation
// ---------------------------------------------------------------------------

// TranslateMissing translates the messages of opts.Input that the output
// file lacks and adds them to it. Both files must exist and be free of
// duplicate keys. When nothing needs translating the output is not touched.
//
// Without Sort the new lines are appended to the output as it is. With Sort
// the output is rewritten in the order and layout of the input.
func TranslateMissing(ctx context.Context, opts Options) (*Result, error) {
	if err := propfile.RequireFile(opts.Input); err != nil {
		return nil, err
	}
	out := opts.output()
	if err := propfile.RequireFile(out); err != nil {
		return nil, err
	}
	res := &Result{Output: out}

	src, err := propfile.ParseFile(opts.Input, propfile.Raw)
	if err != nil {
		return nil, err
	}
	target, err := propfile.ParseFile(out, propfile.Raw)
	if err != nil {
		return nil, err
	}

	var lf *lockfile.LockFile
	if opts.Changed {
		if lf, err = lockfile.LoadFor(out); err != nil {
			return nil, err
		}
	}

	tk := lockfile.TargetKey(out)
	for _, k := range src.Keys() {
		if !target.Has(k) {
			res.Missing = append(res.Missing, k)
			continue
		}
		if lf != nil {
			v, _ := src.Get(k)
			if lf.Changed(tk, k, sourceContent(k, v)) {
				res.Changed = append(res.Changed, k)
			}
		}
	}

	// Source order, missing and changed interleaved.
	pending := make(map[string]bool, len(res.Missing)+len(res.Changed))
	for _, k := range res.Missing {
		pending[k] = true
	}
	for _, k := range res.Changed {
		pending[k] = true
	}
	for _, k := range src.Keys() {
		if pending[k] {
			res.Translated = append(res.Translated, k)
		}
	}

	if len(res.Translated) == 0 {
		opts.log("No missing messages in %s", out)
		return res, nil
	}
	opts.log("Translating %d missing and %d changed messages from %s to %s",
		len(res.Missing), len(res.Changed), opts.From, opts.To)

	sendSrc := src
	if opts.RemoveBackslashes {
		sendSrc = propfile.Normalize(src)
	}
	translated, err := translateKeys(ctx, &opts, res.Translated, sendSrc)
	if err != nil {
		return nil, err
	}

	var data []byte
	if opts.Sort {
		ref, err := propfile.ReadDocument(opts.Input)
		if err != nil {
			return nil, err
		}
		for _, k := range translated.Keys() {
			v, _ := translated.Get(k)
			target.Set(k, v)
		}
		data = merge.Reconcile(ref, target).Bytes()
	} else if len(res.Changed) == 0 {
		// Only appending: the existing bytes stay as they are.
		raw, err := os.ReadFile(out)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", out, err)
		}
		data = merge.AppendMissing(raw, res.Missing, translated)
	} else {
		outDoc, err := propfile.ReadDocument(out)
		if err != nil {
			return nil, err
		}
		changed := propfile.NewMap()
		for _, k := range res.Changed {
			v, _ := translated.Get(k)
			changed.Set(k, v)
		}
		data = propfile.MarshalLines(merge.Replace(outDoc, changed))
		data = merge.AppendMissing(data, res.Missing, translated)
	}

	if err := propfile.WriteFile(out, data); err != nil {
		return nil, err
	}
	res.Written = true

	updateLock(&opts, out, src.Keys(), res.Translated, src)
	return res, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// translateKeys sends the values of keys to the translator and returns the
// translations keyed like the input. Translators that implement Batcher
// receive chunks of at most BatchSize strings.
func translateKeys(ctx context.Context, opts *Options, keys []string, src *propfile.Map) (*propfile.Map, error) {
	if opts.Translator == nil {
		return nil, fmt.Errorf("no translator configured")
	}

	texts := make([]string, len(keys))
	for i, k := range keys {
		texts[i], _ = src.Get(k)
	}

	chunkSize := len(texts)
	if b, ok := opts.Translator.(Batcher); ok && b.BatchSize() > 0 {
		chunkSize = b.BatchSize()
	}

	result := propfile.NewMap()
	done := 0
	for _, chunk := range splitStrings(texts, chunkSize) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		translations, err := opts.Translator.Translate(ctx, chunk, opts.From, opts.To)
		if err != nil {
			return nil, err
		}
		if len(translations) != len(chunk) {
			return nil, fmt.Errorf("expected %d translations, got %d", len(chunk), len(translations))
		}

		for i, t := range translations {
			result.Set(keys[done+i], t)
		}
		done += len(chunk)
		opts.debug("Translated %d/%d", done, len(texts))
		if opts.OnProgress != nil {
			opts.OnProgress(done, len(texts))
		}
	}

	return result, nil
}

func splitStrings(items []string, chunkSize int) [][]string {
	if len(items) == 0 {
		return nil
	}
	if chunkSize <= 0 || chunkSize >= len(items) {
		return [][]string{items}
	}
	var chunks [][]string
	for i := 0; i < len(items); i += chunkSize {
		end := i + chunkSize
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}

// sourceContent is what the lock file hashes for a message. Values are
// compared normalized so reflowing a multiline value is not a change.
func sourceContent(key, value string) string {
	return lockfile.EntryContent(key, propfile.NormalizeValue(value))
}

// updateLock records checksums for the translated keys and baselines for
// any other key without history, then drops keys no longer in the source.
// Lock file problems are logged, not returned: the output is already written.
func updateLock(opts *Options, out string, srcKeys, translated []string, src *propfile.Map) {
	lf, err := lockfile.LoadFor(out)
	if err != nil {
		opts.log("Warning: %v", err)
		return
	}
	tk := lockfile.TargetKey(out)
	content := func(k string) string {
		v, _ := src.Get(k)
		return sourceContent(k, v)
	}

	lf.Record(tk, translated, content)
	for _, k := range srcKeys {
		if !lf.Has(tk, k) {
			lf.Update(tk, k, content(k))
		}
	}
	if n := lf.Clean(tk, srcKeys); n > 0 {
		opts.debug("Dropped %d stale checksums from %s", n, lf.Path())
	}

	if err := lf.Save(); err != nil {
		opts.log("Warning: %v", err)
		return
	}
	opts.debug("Updated %s: %s", lf.Path(), lf.Summary())
}
