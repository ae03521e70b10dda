package consumption

// JoulesPerKWh converts accumulated joules to kilowatt-hours.
const JoulesPerKWh = 3.6e6

// Config holds model coefficients.
// Units:
//   - PIdle/PMax: Watts
//   - Gamma: dimensionless (CPU nonlinearity)
//   - ER/EW: Joules per byte (disk read/write)
//   - EMemRef/EMemRSS: Joules per byte (RAM proxies)
//   - Alpha: fraction of idle to charge to process share [0..1]
type Config struct {
	PIdle   float64 `yaml:"p_idle" toml:"p_idle"`
	PMax    float64 `yaml:"p_max" toml:"p_max"`
	Gamma   float64 `yaml:"gamma" toml:"gamma"`
	ER      float64 `yaml:"er" toml:"er"`
	EW      float64 `yaml:"ew" toml:"ew"`
	EMemRef float64 `yaml:"e_mem_ref" toml:"e_mem_ref"`
	EMemRSS float64 `yaml:"e_mem_rss" toml:"e_mem_rss"`
	Alpha   float64 `yaml:"alpha" toml:"alpha"`
}

// DefaultConfig returns the coefficients used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		PIdle:   5.0,    // W at idle
		PMax:    20.0,   // W at full utilization
		Gamma:   1.3,    // CPU curve exponent
		ER:      4.8e-8, // J/byte disk read
		EW:      9.5e-8, // J/byte disk write
		EMemRef: 7e-10,  // J/byte minor-fault traffic
		EMemRSS: 3e-10,  // J/byte RSS churn
		Alpha:   0.0,    // fraction of idle to distribute
	}
}

// Result is the instantaneous power breakdown for one snapshot.
type Result struct {
	PCPU   float64 // W, idle share included
	PDisk  float64 // W
	PRAM   float64 // W
	PTotal float64 // W
}

// Energy is the accumulated energy per component in joules.
type Energy struct {
	CPUJ  float64
	DiskJ float64
	RAMJ  float64
}

func (e Energy) TotalJ() float64 { return e.CPUJ + e.DiskJ + e.RAMJ }

func (e Energy) CPUKWh() float64   { return e.CPUJ / JoulesPerKWh }
func (e Energy) DiskKWh() float64  { return e.DiskJ / JoulesPerKWh }
func (e Energy) RAMKWh() float64   { return e.RAMJ / JoulesPerKWh }
func (e Energy) TotalKWh() float64 { return e.TotalJ() / JoulesPerKWh }
