package config

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRequiresRole(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	_, err := Parse(fs, []string{"-algo=sgd"})
	require.Error(t, err)
}

func TestParseDerivesRolePackageConfigs(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c, err := Parse(fs, []string{
		"-role=worker",
		"-algo=FTRL",
		"-lr_eta=2", "-lr_beta=0.5",
		"-minibatch=256", "-max_delay=8", "-num_threads=4",
		"-train_data=a.libsvm,b.libsvm",
		"-fixed_bytes=2", "-key_cache",
	})
	require.NoError(t, err)

	sc := c.ServerConfig()
	require.Equal(t, "ftrl", sc.Algo)
	require.Equal(t, float32(2), sc.Alpha)
	require.Equal(t, float32(0.5), sc.Beta)

	wc := c.WorkerConfig()
	require.Equal(t, 256, wc.Minibatch)
	require.Equal(t, 8, wc.MaxDelay)
	require.Equal(t, 4, wc.Threads)

	require.Equal(t, []string{"a.libsvm", "b.libsvm"}, Files(c.TrainData))

	filter := c.Filter()
	require.Equal(t, 2, filter.FixedBytes)
	require.True(t, filter.KeyCache)
}

func TestFilesDropsEmptyEntries(t *testing.T) {
	require.Nil(t, Files(""))
	require.Equal(t, []string{"a"}, Files("a"))
	require.Equal(t, []string{"a", "b"}, Files("a,,b"))
}

func TestNamedAddrsParsesPairs(t *testing.T) {
	m, err := NamedAddrs("w1=127.0.0.1:9001,w2=127.0.0.1:9002")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9001", m["w1"])
	require.Equal(t, "127.0.0.1:9002", m["w2"])
}

func TestNamedAddrsRejectsMalformedPair(t *testing.T) {
	_, err := NamedAddrs("w1-127.0.0.1:9001")
	require.Error(t, err)
}
