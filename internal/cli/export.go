package cli

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"tracegen/internal/workload"
)

// ExportCSV writes one row per job for spreadsheet or pandas analysis.
// Schema: id,subtime,res,delay,walltime,profile
func ExportCSV(wl *workload.Workload, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "creating %s", filename)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{"id", "subtime", "res", "delay", "walltime", "profile"}
	if err := w.Write(header); err != nil {
		return errors.Wrapf(err, "writing %s", filename)
	}

	for _, j := range wl.Jobs {
		record := []string{
			j.ID,
			strconv.Itoa(j.Subtime),
			strconv.Itoa(j.Res),
			strconv.Itoa(wl.Profiles[j.Profile].Delay),
			strconv.Itoa(j.Walltime),
			j.Profile,
		}
		if err := w.Write(record); err != nil {
			return errors.Wrapf(err, "writing %s", filename)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrapf(err, "writing %s", filename)
	}
	return errors.Wrapf(f.Close(), "closing %s", filename)
}
