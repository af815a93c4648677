// Package rsgislib provides ISODATA clustering for multi-band raster images.
//
// ISODATA extends k-means with merge and split heuristics: centres closer
// than a threshold are combined, and centres with high per-band variance are
// split in two, so the cluster count adapts to the data during refinement.
//
// # Quick Start
//
//	ctx := context.Background()
//	c, _ := rsgislib.NewISODATAClassifier(img, rsgislib.WithSeed(42))
//
//	_ = c.InitClusterCentresKpp(ctx, 10)
//	_ = c.CalcClusterCentres(ctx, rsgislib.RefineParams{
//	    TerminalThreshold:         0.0025,
//	    MaxIterations:             200,
//	    MinNumVals:                10,
//	    MinDistanceBetweenCentres: 0.00025,
//	    StdDevThreshold:           5,
//	    PropOverAvgDist:           1,
//	})
//	_ = c.GenerateOutputImage(ctx, out) // single-band cluster ID raster
//
// # Border Pixels
//
// A pixel whose first band truncates to zero is treated as border/no-data:
// it never contributes to cluster statistics and is labelled 0 in the
// output. Cluster IDs therefore start at 1.
//
// # Persistence
//
// Trained centres can be serialized and reused for label-only runs, locally
// or from object storage:
//
//	data, _ := c.Snapshot()
//	// ... elsewhere ...
//	set, _ := snapshot.Load(ctx, store, "landsat.centres")
//	_ = rsgislib.LabelPixelsUsingClusters(ctx, img, out, set, true)
//
// # Key Features
//
//   - Random and k-means++ seeding
//   - Deterministic runs via WithSeed
//   - Parallel pixel iteration via WithWorkers
//   - Pluggable distance metrics, codecs, logging, and metrics
//   - Centre persistence to local disk, S3, or MinIO via blobstore
package rsgislib
