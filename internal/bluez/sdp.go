package bluez

import "fmt"

// HID profile UUID (Human Interface Device, Bluetooth assigned number 0x1124).
const ProfileUUID = "00001124-0000-1000-8000-00805f9b34fb"

// serviceRecordTemplate is the SDP record handed to BlueZ verbatim, with
// the service name and provider filled in. Attribute 0x0004 pins the
// protocol stack (L2CAP, RFCOMM channel 0x0c, SDP) and 0x0009 declares
// HID profile version 1.00.
const serviceRecordTemplate = `
<?xml version="1.0" encoding="UTF-8" ?>
<record>
  <attribute id="0x0001">
    <sequence>
      <uuid value="0x1124"/>
    </sequence>
  </attribute>
  <attribute id="0x0004">
    <sequence>
      <sequence>
        <uuid value="0x0100"/>
      </sequence>
      <sequence>
        <uuid value="0x0003"/>
        <uint8 value="0x0c" name="channel"/>
      </sequence>
      <sequence>
        <uuid value="0x0005"/>
      </sequence>
    </sequence>
  </attribute>
  <attribute id="0x0005">
    <sequence>
      <uuid value="0x1002"/>
    </sequence>
  </attribute>
  <attribute id="0x0009">
    <sequence>
      <sequence>
        <uuid value="0x1124"/>
        <uint16 value="0x0100"/>
      </sequence>
    </sequence>
  </attribute>
  <attribute id="0x000d">
    <sequence>
      <sequence>
        <sequence>
          <uuid value="0x0100"/>
        </sequence>
        <sequence>
          <uuid value="0x0003"/>
          <uint8 value="0x0c" name="channel"/>
        </sequence>
      </sequence>
    </sequence>
  </attribute>
  <attribute id="0x0100">
    <text value="%s" name="name"/>
  </attribute>
  <attribute id="0x0101">
    <text value="HID Device" name="description"/>
  </attribute>
  <attribute id="0x0102">
    <text value="%s" name="provider"/>
  </attribute>
</record>
`

// serviceRecord renders the SDP record for the given service name and
// provider string.
func serviceRecord(name, provider string) string {
	return fmt.Sprintf(serviceRecordTemplate, name, provider)
}
