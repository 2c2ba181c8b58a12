//go:generate gomarkdoc -e -f github -o README.md . --repository.url https://github.com/agentstation/harvester --repository.default-branch master --repository.path /

// Package harvester synchronizes a local catalog of dataset records with
// remote DCAT / Project Open Data ("data.json") feeds and exports the local
// catalog back into that format.
//
// A harvest run for one source has three phases:
//
//   - discover: fetch the remote catalog and reconcile it against the
//     current traces of the source (create, update, skip, withdraw);
//   - snapshot: store one non-current trace per pending identifier;
//   - materialize: transform, validate and write each pending record with
//     bounded parallelism, then mark its trace current.
//
// Example usage:
//
//	st, err := store.Open(ctx, "sqlite://harvester.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	h, err := harvester.New(st)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	h.OnRecordCreated(func(rec *records.Record) {
//	    log.Printf("new dataset: %s", rec.Name)
//	})
//
//	result, err := h.Harvest(ctx, sources.Source{
//	    ID:  "agency",
//	    URL: "https://agency.gov/data.json",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Summary())
//
//	catalog, errs := h.Export(ctx)
package harvester
