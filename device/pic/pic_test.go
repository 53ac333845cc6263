package pic

import (
	"bytes"
	"testing"

	"kernel32/kernel"
)

type portWrite struct {
	port uint16
	val  uint8
}

func mockPorts() (*[]portWrite, func()) {
	origFn := portWriteByteFn

	var writes []portWrite
	portWriteByteFn = func(port uint16, val uint8) {
		writes = append(writes, portWrite{port, val})
	}

	return &writes, func() { portWriteByteFn = origFn }
}

func TestDriverInit(t *testing.T) {
	writes, restore := mockPorts()
	defer restore()

	var (
		ctrl Controller
		buf  bytes.Buffer
	)

	if err := ctrl.DriverInit(&buf); err != nil {
		t.Fatal(err)
	}

	exp := []portWrite{
		{0x20, 0x11}, {0xa0, 0x11},
		{0x21, 0x20}, {0xa1, 0x28},
		{0x21, 0x04}, {0xa1, 0x02},
		{0x21, 0x01}, {0xa1, 0x01},
		{0x21, 0xff}, {0xa1, 0xff},
	}

	if len(*writes) != len(exp) {
		t.Fatalf("expected %d port writes; got %v", len(exp), *writes)
	}
	for i := range exp {
		if (*writes)[i] != exp[i] {
			t.Errorf("expected port write %d to be %+v; got %+v", i, exp[i], (*writes)[i])
		}
	}

	if exp := "remapped irqs to vectors 0x20 and 0x28\n"; buf.String() != exp {
		t.Fatalf("expected log output %q; got %q", exp, buf.String())
	}

	if name := ctrl.DriverName(); name != "pic8259" {
		t.Fatalf("unexpected driver name %q", name)
	}

	if major, minor, patch := ctrl.DriverVersion(); major != 0 || minor != 0 || patch != 1 {
		t.Fatalf("unexpected driver version %d.%d.%d", major, minor, patch)
	}
}

func TestMaskUnmask(t *testing.T) {
	writes, restore := mockPorts()
	defer restore()

	var ctrl Controller
	if err := ctrl.DriverInit(&bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}

	specs := []struct {
		mask      bool
		irq       uint8
		expMaster uint8
		expSlave  uint8
		expErr    *kernel.Error
	}{
		{false, 0, 0xfe, 0xff, nil},
		{false, 12, 0xfa, 0xef, nil},
		{true, 0, 0xfb, 0xef, nil},
		{true, 16, 0xfb, 0xef, errInvalidIRQ},
		{false, 200, 0xfb, 0xef, errInvalidIRQ},
	}

	for specIndex, spec := range specs {
		*writes = nil

		var err *kernel.Error
		if spec.mask {
			err = ctrl.Mask(spec.irq)
		} else {
			err = ctrl.Unmask(spec.irq)
		}

		if err != spec.expErr {
			t.Errorf("[spec %d] expected error %v; got %v", specIndex, spec.expErr, err)
			continue
		}

		if ctrl.masterMask != spec.expMaster || ctrl.slaveMask != spec.expSlave {
			t.Errorf("[spec %d] expected masks 0x%x/0x%x; got 0x%x/0x%x", specIndex, spec.expMaster, spec.expSlave, ctrl.masterMask, ctrl.slaveMask)
		}

		if spec.expErr != nil {
			if len(*writes) != 0 {
				t.Errorf("[spec %d] expected no port writes on error; got %v", specIndex, *writes)
			}
			continue
		}

		last := (*writes)[len(*writes)-2:]
		if last[0] != (portWrite{masterDataPort, spec.expMaster}) || last[1] != (portWrite{slaveDataPort, spec.expSlave}) {
			t.Errorf("[spec %d] expected masks to be written to the data ports; got %v", specIndex, *writes)
		}
	}
}
