package delit

import "github.com/clrtools/delit/cilmeta"

// Run loads the module at cfg.InputPath, runs the full pipeline against it,
// and — unless cfg.DryRun or cfg.ScanOnly is set — writes the result to
// cfg.OutputPath.
func Run(cfg Config) (*Report, error) {
	mod, err := cilmeta.Load(cfg.InputPath)
	if err != nil {
		return nil, &LoadError{Path: cfg.InputPath, Err: err}
	}

	report, err := RunModule(mod, cfg)
	if err != nil {
		return report, err
	}

	if cfg.DryRun || cfg.ScanOnly {
		return report, nil
	}

	if err := mod.Write(cfg.OutputPath); err != nil {
		return report, &WriteError{Path: cfg.OutputPath, Err: err}
	}
	report.Written = true
	return report, nil
}

// RunModule drives the pipeline against an already-loaded module, without
// touching the filesystem. Only cfg.ScanOnly is consulted; every other
// field is ignored here.
func RunModule(mod *cilmeta.Module, cfg Config) (*Report, error) {
	report := NewReport()

	binding, found := Locate(mod)
	if !found {
		log.Info("no decoder type found; nothing to rewrite")
		return report, nil
	}
	report.DecoderFound = true
	report.DecoderTypeName = binding.DecoderType.FullName

	raw, err := ExtractPayload(binding)
	if err != nil {
		return report, err
	}
	Decrypt(raw)
	binding.Payload = raw
	report.PayloadLength = len(raw)
	report.PayloadFingerprint = fingerprintPayload(raw)

	am, stats := AnalyzeAccessors(binding)
	report.AccessorsRecovered = am.Len()
	report.AccessorsSkipped = stats.AccessorsSkipped
	report.UsedLookupTable = stats.UsedLookupTable
	report.TableRecordsSkipped = stats.TableRecordsSkipped
	log.Infof("recovered %d accessors (%d skipped) from %s", am.Len(), stats.AccessorsSkipped, binding.DecoderType.FullName)

	if cfg.ScanOnly {
		return report, nil
	}

	rstats := Rewrite(mod, binding, am)
	report.MethodsPatched = rstats.MethodsPatched
	report.CallsReplaced = rstats.CallsReplaced

	report.ResidualCalls = Verify(mod, binding)
	if report.ResidualCalls > 0 {
		log.Warningf("%d residual call(s) to %s remain after rewrite", report.ResidualCalls, binding.DecoderType.FullName)
	}

	return report, nil
}
