// Package sitesnap captures a screenshot of every website in a worklist with
// headless Chrome and collects the results into paginated page documents.
//
// # Quick Start
//
// Read a worklist, run the pipeline, and print the summary:
//
//	records, err := sitesnap.ReadWorklist("list.xlsx", sitesnap.WorklistOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	p := sitesnap.NewPipeline(
//	    sitesnap.WithWorkers(5),
//	    sitesnap.WithOutput("screenshots", "screenshots"),
//	)
//	report, err := p.Run(ctx, records)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(report.Stats) // total: 3, success: 3, failed: 0
//
// # Capture Policy
//
// Each record is handled by exactly one capture task:
//
//  1. The address is trimmed and, without a scheme, prefixed with https://.
//  2. Up to MaxRetries attempts navigate, wait for the page to settle, fix
//     the viewport, and write a PNG. A redirect is logged and reported.
//  3. After a failed first attempt over https, later attempts use http.
//  4. When attempts run out, or on any error that is not a renderer fault,
//     a "404 Not Found" placeholder is written instead.
//
// Every record therefore ends with an image on disk.
//
// # Pages
//
// Results are appended in completion order. Completion index k lands on
// page k/pageSize, saved as "<base>(<start>-<end>).md" after every append.
// A page that already exists on disk is resumed, not overwritten.
// PDFExporter renders finished pages to PDF.
//
// # Parallel Processing
//
// Workers each own one browser session, started on their first record and
// closed when the run ends. Results flow to a single consumer that updates
// the pages and the statistics, so no page is ever written concurrently.
package sitesnap
