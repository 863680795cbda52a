// Package pkg provides the core libraries of Leafshift.
//
// # Overview
//
// Leafshift adapts radiotherapy plans between linacs fitted with a Varian
// Millennium 120 and an HD 120 multileaf collimator. The pkg directory is
// organized into four areas:
//
//  1. Domain: [mlc] (leaf geometry), [rtplan] (DICOM RT Plan records),
//     [convert] (the leaf remapping) and [aperture] (drawing)
//  2. Infrastructure: [cache], [history], [linac] and [config]
//  3. Orchestration: [pipeline] ties parsing, conversion, caching and
//     history together for the CLI and the HTTP server
//  4. Support: [errors] (codes), [i18n] (messages), [observability] (hooks)
//     and [buildinfo]
//
// # Architecture
//
// The data flow of one conversion:
//
//	RT Plan record (.dcm)
//	         ↓
//	    [rtplan] Parse
//	         ↓
//	    [convert] Identify → remap every control point
//	         ↓
//	    [rtplan] Encode (new UIDs, unapproved, target machine)
//	         ↓
//	    converted record, cached and recorded in history
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/matzehuels/leafshift/pkg/pipeline"
//	)
//
//	runner := pipeline.NewRunner(nil, nil, nil)
//	res, err := runner.Convert(context.Background(), data, pipeline.ConvertOptions{Name: "RP.dcm"})
//	if err != nil {
//	    // rejected plan: errors.GetCode(err) says why
//	}
//	os.WriteFile(res.OutputName, res.Output, 0644)
//
// # Conversion Rules
//
// The source family is taken from the first leaf boundary of the first beam
// (-200 mm Millennium, -110 mm HD). A Millennium to HD conversion is rejected
// when an open leaf pair lies outside the HD range. Control points without
// leaf positions and beams without an MLC are reported as warnings and never
// stop a conversion.
//
// [mlc]: github.com/matzehuels/leafshift/pkg/mlc
// [rtplan]: github.com/matzehuels/leafshift/pkg/rtplan
// [convert]: github.com/matzehuels/leafshift/pkg/convert
// [aperture]: github.com/matzehuels/leafshift/pkg/aperture
// [cache]: github.com/matzehuels/leafshift/pkg/cache
// [history]: github.com/matzehuels/leafshift/pkg/history
// [linac]: github.com/matzehuels/leafshift/pkg/linac
// [config]: github.com/matzehuels/leafshift/pkg/config
// [pipeline]: github.com/matzehuels/leafshift/pkg/pipeline
// [errors]: github.com/matzehuels/leafshift/pkg/errors
// [i18n]: github.com/matzehuels/leafshift/pkg/i18n
// [observability]: github.com/matzehuels/leafshift/pkg/observability
// [buildinfo]: github.com/matzehuels/leafshift/pkg/buildinfo
package pkg
