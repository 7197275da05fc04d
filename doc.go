// Package delit locates the decoder type a managed module's build-time
// string obfuscator left behind, recovers the literal text each accessor
// method returns, and rewrites every call site that fetched an obfuscated
// string so it carries the recovered literal directly.
//
// Use Run to drive the whole pipeline against a module on disk:
//
//	report, err := delit.Run(delit.Config{
//		InputPath:  "Obfuscated.dll",
//		OutputPath: "Obfuscated.clean.dll",
//	})
//
// report summarizes what was found and changed: the decoder type's name,
// how many accessors were recovered versus skipped, and how many call
// sites were patched. A module with no recognizable decoder is not an
// error — Run returns a report with DecoderFound false.
//
// RunModule drives the same pipeline against an already-loaded
// *cilmeta.Module, which is how tests exercise the pipeline without going
// through the filesystem.
//
// The stages are exposed individually (Locate, ExtractPayload, Decrypt,
// AnalyzeAccessors, Rewrite, Verify) for callers that want to compose them
// differently or inspect intermediate state.
package delit
