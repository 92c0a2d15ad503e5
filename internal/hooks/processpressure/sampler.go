package processpressure

import (
	"bufio"
	"context"
	"os/exec"
	"strconv"
	"strings"
)

// PSSampler samples live system counters via `ps`, the same opaque
// subprocess idiom internal/gitshell uses for git/gh: no process-metrics
// library appears anywhere in the example pack, so this is the one place
// this tree shells out directly instead of importing one.
type PSSampler struct{}

// NewPSSampler creates a Sampler backed by the system `ps` binary.
func NewPSSampler() PSSampler { return PSSampler{} }

// Sample counts processes whose command name contains "opencode" or
// "continue" and reports the highest RSS (in MiB) seen across all sampled
// processes. A `ps` invocation failure (binary missing, platform
// unsupported) yields a zero-valued Sample rather than an error, since a
// pressure sampler that cannot read the system is equivalent to "no
// pressure observed," not a dispatch failure.
func (PSSampler) Sample(ctx context.Context) (Sample, error) {
	cmd := exec.CommandContext(ctx, "ps", "-axo", "rss,comm")
	out, err := cmd.Output()
	if err != nil {
		return Sample{}, nil
	}

	var sample Sample
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue // header line
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		rssKb, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		comm := strings.ToLower(strings.Join(fields[1:], " "))

		rssMb := rssKb / 1024
		if rssMb > sample.MaxRssMb {
			sample.MaxRssMb = rssMb
		}
		if strings.Contains(comm, "opencode") {
			sample.OpencodeProcessCount++
		}
		if strings.Contains(comm, "continue") {
			sample.ContinueProcessCount++
		}
	}
	return sample, nil
}
